package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ouvidoriag/ogdash2/internal/data/db"
	"github.com/ouvidoriag/ogdash2/internal/http"
	httpH "github.com/ouvidoriag/ogdash2/internal/http/handlers"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

type Handlers struct {
	Health        *httpH.HealthHandler
	Reporting     *httpH.ReportingHandler
	Notifications *httpH.NotificationHandler
}

func wireHandlers(log *logger.Logger, dbs *db.Service, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:        httpH.NewHealthHandler(dbs),
		Reporting:     httpH.NewReportingHandler(services.Reporting),
		Notifications: httpH.NewNotificationHandler(services.Tracker),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, gatherer prometheus.Gatherer, handlers Handlers) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return http.NewRouter(http.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		Gatherer:            gatherer,
		CORSOrigins:         cfg.CORSOrigins,
		ServiceName:         serviceName,
		HealthHandler:       handlers.Health,
		ReportingHandler:    handlers.Reporting,
		NotificationHandler: handlers.Notifications,
	})
}
