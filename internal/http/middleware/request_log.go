package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ouvidoriag/ogdash2/internal/platform/ctxutil"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

// RequestLogger writes one line per request. Health probes are logged at
// debug so they do not drown the dashboard traffic.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		kv = append(kv, ctxutil.RequestInfoFrom(c.Request.Context()).LogFields()...)
		if q := c.Request.URL.RawQuery; q != "" {
			kv = append(kv, "query", q)
		}
		if last := c.Errors.Last(); last != nil {
			kv = append(kv, "error", last.Error())
		}

		switch {
		case status >= 500:
			log.Error("http request", kv...)
		case status >= 400:
			log.Warn("http request", kv...)
		case route == "/healthcheck" || route == "/readyz":
			log.Debug("http request", kv...)
		default:
			log.Info("http request", kv...)
		}
	}
}
