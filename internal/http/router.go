package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/ouvidoriag/ogdash2/internal/http/handlers"
	httpMW "github.com/ouvidoriag/ogdash2/internal/http/middleware"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	ServiceName string

	HealthHandler       *httpH.HealthHandler
	ReportingHandler    *httpH.ReportingHandler
	NotificationHandler *httpH.NotificationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	// Metrics
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		if cfg.ReportingHandler != nil {
			h := cfg.ReportingHandler

			// Aggregations
			api.GET("/aggregate/count", h.Count)
			api.GET("/aggregate/by-month", h.ByMonth)
			api.GET("/aggregate/by-period", h.ByPeriod)
			api.GET("/aggregate/cross", h.Cross)
			api.GET("/aggregate/field/:field", h.GroupBy)
			api.GET("/aggregate/field/:field/resolution", h.AverageResolution)

			// Records
			api.POST("/records/filter", h.Filter)

			// Deadlines
			api.GET("/sla/summary", h.SLASummary)
			api.GET("/deadlines/upcoming", h.Upcoming)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			api.GET("/notifications/:identifier", cfg.NotificationHandler.ListForIdentifier)
		}
	}

	return r
}
