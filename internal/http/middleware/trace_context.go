package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ouvidoriag/ogdash2/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext tags the request with a request id (the caller's, or a
// fresh uuid) and the active span's trace id, and echoes both as headers.
// It must run after the otelgin middleware for the trace id to be real.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := ctxutil.RequestInfo{RequestID: strings.TrimSpace(c.GetHeader(headerRequestID))}
		if info.RequestID == "" || len(info.RequestID) > 128 {
			info.RequestID = uuid.NewString()
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			info.TraceID = sc.TraceID().String()
		}

		c.Request = c.Request.WithContext(ctxutil.WithRequestInfo(c.Request.Context(), info))
		c.Header(headerRequestID, info.RequestID)
		if info.TraceID != "" {
			c.Header(headerTraceID, info.TraceID)
		}
		c.Next()
	}
}
