package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	exposeHeaders = "Content-Disposition, X-Total-Count, X-Request-ID"
)

// New returns a CORS middleware for the dashboard origins. Entries may be an
// exact origin or a subdomain wildcard such as "https://*.campus.edu". An empty
// list admits any origin without credentials.
func New(allowedOrigins []string) gin.HandlerFunc {
	matcher := newOriginMatcher(allowedOrigins)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		switch {
		case origin == "":
		case matcher.any:
			h.Set("Access-Control-Allow-Origin", "*")
		case matcher.match(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		default:
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		h.Set("Access-Control-Expose-Headers", exposeHeaders)
		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Allowed reports whether origin passes the same rules New applies. The
// websocket upgrader uses it so both entry points agree.
func Allowed(allowedOrigins []string) func(origin string) bool {
	matcher := newOriginMatcher(allowedOrigins)
	return func(origin string) bool {
		return matcher.any || matcher.match(origin)
	}
}

type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []wildcard
}

type wildcard struct {
	scheme string
	suffix string
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{any: len(origins) == 0, exact: make(map[string]struct{}, len(origins))}
	for _, raw := range origins {
		origin := strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), "/"))
		switch {
		case origin == "*":
			m.any = true
		case strings.Contains(origin, "://*."):
			scheme, host, _ := strings.Cut(origin, "://*")
			m.suffixes = append(m.suffixes, wildcard{scheme: scheme + "://", suffix: host})
		case origin != "":
			m.exact[origin] = struct{}{}
		}
	}
	return m
}

func (m originMatcher) match(origin string) bool {
	origin = strings.ToLower(strings.TrimRight(origin, "/"))
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, w := range m.suffixes {
		if !strings.HasPrefix(origin, w.scheme) {
			continue
		}
		host := strings.TrimPrefix(origin, w.scheme)
		if strings.HasSuffix(host, w.suffix) && len(host) > len(w.suffix) {
			return true
		}
	}
	return false
}
