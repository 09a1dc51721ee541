package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// ActivityRecorder persists activity log entries.
type ActivityRecorder interface {
	Create(ctx context.Context, log *models.ActivityLog) error
}

// Audit creates a middleware that records an activity log after successful
// requests. The :id path parameter, when present, becomes the resource ID.
func Audit(repo ActivityRecorder, logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims := CurrentUser(c); claims != nil {
			id := claims.UserID
			userID = &id
		}
		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		if err := repo.Create(c.Request.Context(), &models.ActivityLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Metadata:   body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		}); err != nil {
			logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
		}
	}
}
