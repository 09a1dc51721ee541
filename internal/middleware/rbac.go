package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// roleGate decides, from the caller's claims, whether the request may
// continue.
type roleGate func(c *gin.Context, claims *models.JWTClaims) bool

func gate(allow roleGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allow(c, claims) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func roleSet(roles []models.UserRole) map[models.UserRole]bool {
	set := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return set
}

// RequireRoles admits callers holding one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	set := roleSet(roles)
	return gate(func(_ *gin.Context, claims *models.JWTClaims) bool {
		return set[claims.Role]
	})
}

// SelfOrRoles admits callers holding one of roles, and any caller whose
// user ID equals the named path parameter.
func SelfOrRoles(param string, roles ...models.UserRole) gin.HandlerFunc {
	set := roleSet(roles)
	return gate(func(c *gin.Context, claims *models.JWTClaims) bool {
		if set[claims.Role] {
			return true
		}
		id := c.Param(param)
		return id != "" && id == claims.UserID
	})
}
