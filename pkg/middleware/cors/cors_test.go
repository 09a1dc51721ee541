package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(allowed []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(allowed))
	r.GET("/courses", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/courses", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/courses", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSExactAndWildcardOrigins(t *testing.T) {
	allowed := []string{"https://lms.campus.edu/", "https://*.staging.campus.edu"}

	w := serve(allowed, http.MethodGet, "https://lms.campus.edu")
	assert.Equal(t, "https://lms.campus.edu", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")

	w = serve(allowed, http.MethodGet, "https://pr-12.staging.campus.edu")
	assert.Equal(t, "https://pr-12.staging.campus.edu", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(allowed, http.MethodGet, "https://staging.campus.edu")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(allowed, http.MethodGet, "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	allowed := []string{"https://lms.campus.edu"}

	w := serve(allowed, http.MethodOptions, "https://lms.campus.edu")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	w = serve(allowed, http.MethodOptions, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSOpenListOmitsCredentials(t *testing.T) {
	w := serve(nil, http.MethodGet, "https://anywhere.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAllowedMatchesMiddleware(t *testing.T) {
	allowed := Allowed([]string{"https://*.campus.edu"})
	assert.True(t, allowed("https://lms.campus.edu"))
	assert.False(t, allowed("http://lms.campus.edu"))
	assert.True(t, Allowed(nil)("https://anything.example"))
}
