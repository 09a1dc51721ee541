package middleware

import "github.com/gin-gonic/gin"

// ServeAsAttachment makes browsers download uploaded files instead of
// rendering them on the API origin.
func ServeAsAttachment() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Content-Disposition", "attachment")
		c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
		c.Next()
	}
}
