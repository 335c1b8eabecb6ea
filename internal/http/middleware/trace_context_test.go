package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ouvidoriag/ogdash2/internal/platform/ctxutil"
)

func TestAttachTraceContextRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen ctxutil.RequestInfo
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.RequestInfoFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen.RequestID != "req-123" || rec.Header().Get(headerRequestID) != "req-123" {
		t.Fatalf("caller id: ctx=%q header=%q", seen.RequestID, rec.Header().Get(headerRequestID))
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if seen.RequestID == "" || seen.RequestID == "req-123" {
		t.Fatalf("generated id: got=%q", seen.RequestID)
	}
	if seen.TraceID != "" {
		t.Fatalf("no span: want empty trace id got=%q", seen.TraceID)
	}
}
