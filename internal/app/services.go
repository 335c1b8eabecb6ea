package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ouvidoriag/ogdash2/internal/cache"
	"github.com/ouvidoriag/ogdash2/internal/notify"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/platform/sendgrid"
	"github.com/ouvidoriag/ogdash2/internal/reporting/aggregate"
	"github.com/ouvidoriag/ogdash2/internal/reporting/deadline"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
	"github.com/ouvidoriag/ogdash2/internal/services"
)

type Services struct {
	Cache     *cache.Cache
	Filters   *filter.Engine
	Deadlines *deadline.Engine
	Reporting services.ReportingService
	Tracker   *notify.Tracker
	// Sweeper is nil when no mailer is configured.
	Sweeper *notify.Sweeper

	redis redis.UniversalClient
}

func (s Services) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, reposet Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	var out Services

	resolver, err := fields.NewResolver(cfg.FieldAliases)
	if err != nil {
		return out, fmt.Errorf("field aliases: %w", err)
	}

	var store cache.Store = reposet.CacheEntries
	if strings.EqualFold(cfg.Cache.Backend, CacheBackendRedis) {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis ping failed; cache reads will surface as unavailable until it recovers", "addr", cfg.Cache.RedisAddr, "error", err)
		}
		out.redis = client
		store = cache.NewRedisStore(client)
	}

	out.Cache = cache.New(store, log, metrics, cache.Options{
		MemoryEnabled:    cfg.Cache.MemoryEnabled,
		MemoryMaxEntries: cfg.Cache.MemoryMaxEntries,
		Timeout:          cfg.Cache.Timeout,
		ComputeTimeout:   cfg.Cache.ComputeTimeout,
	})
	out.Filters = filter.NewEngine(reposet.Records, resolver, log, cfg.StoreTimeout)
	out.Deadlines = deadline.New(cfg.Deadline)
	aggregates := aggregate.NewEngine(reposet.Records, out.Filters, log, metrics, cfg.StoreTimeout)

	out.Reporting = services.NewReportingService(log, services.ReportingDeps{
		Cache:      out.Cache,
		Filters:    out.Filters,
		Aggregates: aggregates,
		Deadlines:  out.Deadlines,
		TTLs: services.TTLs{
			Aggregate: cfg.Cache.AggregateTTL,
			Filter:    cfg.Cache.FilterTTL,
			Deadline:  cfg.Cache.DeadlineTTL,
		},
		Location: cfg.Location(),
	})

	out.Tracker = notify.NewTracker(reposet.Notifications, log)

	if strings.TrimSpace(cfg.SendGrid.APIKey) == "" {
		log.Warn("SENDGRID_API_KEY not set; deadline notifications disabled")
		return out, nil
	}
	sg, err := sendgrid.New(log, cfg.SendGrid)
	if err != nil {
		return out, fmt.Errorf("init sendgrid: %w", err)
	}
	out.Sweeper, err = notify.NewSweeper(notify.SweeperDeps{
		Records:     reposet.Records,
		Deadlines:   out.Deadlines,
		Tracker:     out.Tracker,
		Recipients:  notify.NewOrganRecipients(cfg.Notify.Recipients, cfg.Notify.DefaultRecipients),
		Mailer:      notify.NewSendgridMailer(sg),
		Log:         log,
		Metrics:     metrics,
		Concurrency: cfg.Notify.Concurrency,
	})
	if err != nil {
		return out, fmt.Errorf("init sweeper: %w", err)
	}
	return out, nil
}
