package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ouvidoriag/ogdash2/internal/data/db"
	"github.com/ouvidoriag/ogdash2/internal/http"
	"github.com/ouvidoriag/ogdash2/internal/notify"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

const serviceName = "ogdash"

type App struct {
	Log      *logger.Logger
	DB       *db.Service
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Registry *prometheus.Registry

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New loads config and wires everything. migrate controls whether the schema
// is brought up to date before serving.
func New(ctx context.Context, migrate bool) (*App, error) {
	cfg, err := LoadConfig(nil)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Headers:     cfg.Tracing.Headers,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})

	dbs, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if migrate {
		if err := db.AutoMigrateAll(dbs.DB()); err != nil {
			_ = dbs.Close()
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	reposet := wireRepos(dbs.DB(), log)
	serviceset, err := wireServices(ctx, log, cfg, reposet, metrics)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, dbs, serviceset)
	router := wireRouter(log, cfg, metrics, reg, handlerset)

	return &App{
		Log:          log,
		DB:           dbs,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Registry:     reg,
		otelShutdown: shutdown,
	}, nil
}

// Start launches background work: the daily notification scheduler when
// enabled and a mailer is configured.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if !a.Cfg.Notify.Enabled {
		return nil
	}
	if a.Services.Sweeper == nil {
		a.Log.Warn("notifications enabled but no mailer configured; scheduler not started")
		return nil
	}
	sched, err := notify.NewScheduler(a.Services.Sweeper, a.Log, a.Cfg.Notify.Schedule, a.Cfg.Location())
	if err != nil {
		return err
	}
	return sched.Start(ctx)
}

// Serve blocks until ctx is cancelled or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	srv := &http.Server{Engine: a.Router}
	addr := ":" + a.Cfg.Port
	a.Log.Info("server listening", "addr", addr)
	return srv.Run(ctx, addr, a.Cfg.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Services.close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
