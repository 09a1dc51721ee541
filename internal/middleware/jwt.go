package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator parses access tokens into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// tokenExtractor pulls the raw access token from a request. An empty token
// with a nil error means none was supplied.
type tokenExtractor func(c *gin.Context) (string, error)

func bearerToken(c *gin.Context) (string, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", nil
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return token, nil
}

// headerOrQueryToken prefers the Authorization header and falls back to
// ?token=, which is all a browser websocket can send.
func headerOrQueryToken(c *gin.Context) (string, error) {
	token, err := bearerToken(c)
	if err != nil || token != "" {
		return token, err
	}
	return c.Query("token"), nil
}

func authenticate(validator TokenValidator, extract tokenExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extract(c)
		if err == nil && token == "" {
			err = appErrors.ErrUnauthorized
		}
		var claims *models.JWTClaims
		if err == nil {
			claims, err = validator.ValidateToken(token)
		}
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="campus-lms"`)
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// JWT requires a valid bearer token in the Authorization header.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return authenticate(validator, bearerToken)
}

// JWTQuery authenticates websocket upgrades from the header or the token
// query parameter.
func JWTQuery(validator TokenValidator) gin.HandlerFunc {
	return authenticate(validator, headerOrQueryToken)
}

// CurrentUser returns the claims attached by JWT, or nil.
func CurrentUser(c *gin.Context) *models.JWTClaims {
	if value, ok := c.Get(ContextUserKey); ok {
		if claims, ok := value.(*models.JWTClaims); ok {
			return claims
		}
	}
	return nil
}
