package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

type responseMeta struct {
	mu     sync.Mutex
	start  time.Time
	values map[string]interface{}
}

// WithResponseMeta starts the request clock and the metadata bag that
// handlers fill through SetMeta.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now(), values: map[string]interface{}{}})
		c.Next()
	}
}

// SetMeta records a key for the envelope's meta object.
func SetMeta(c *gin.Context, key string, value interface{}) {
	m := metaFrom(c)
	if m == nil {
		return
	}
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// SetCacheHit flags whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, "cache_hit", hit)
}

// ExtractMeta snapshots the collected metadata and stamps processing_time_ms.
// It returns nil when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	m := metaFrom(c)
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]interface{}, len(m.values)+1)
	for k, v := range m.values {
		out[k] = v
	}
	if _, ok := out["processing_time_ms"]; !ok {
		out["processing_time_ms"] = time.Since(m.start).Milliseconds()
	}
	return out
}

func metaFrom(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	value, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	m, _ := value.(*responseMeta)
	return m
}
