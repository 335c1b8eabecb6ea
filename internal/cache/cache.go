// Package cache is a TTL cache for computed report results: a durable store
// holding {value, computedAt, ttl} rows, optionally fronted by a per-process
// LRU. Freshness is decided here by comparing the stored timestamp; stores
// have no TTL of their own.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

// Store is the durable key-value side. Get returns (nil, nil) for a missing
// key. Put replaces the whole entry.
type Store interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Put(ctx context.Context, entry *domain.CacheEntry) error
}

type Options struct {
	MemoryEnabled    bool
	MemoryMaxEntries int
	// Timeout bounds each durable Get and Put.
	Timeout time.Duration
	// ComputeTimeout bounds a shared compute. The compute runs detached from
	// the caller that started it so one cancelled request cannot fail the
	// others waiting on the same key.
	ComputeTimeout time.Duration
	Now            func() time.Time
}

type Cache struct {
	store   Store
	mem     *memoryLayer
	group   singleflight.Group
	log     *logger.Logger
	metrics *observability.Metrics
	timeout time.Duration
	compute time.Duration
	now     func() time.Time
}

func New(st Store, baseLog *logger.Logger, metrics *observability.Metrics, opts Options) *Cache {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	c := &Cache{
		store:   st,
		log:     baseLog.With("service", "HybridCache"),
		metrics: metrics,
		timeout: opts.Timeout,
		compute: opts.ComputeTimeout,
		now:     opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if opts.MemoryEnabled {
		c.mem = newMemoryLayer(opts.MemoryMaxEntries)
	}
	return c
}

// Key joins a cache name, its discriminants and a version into
// "<name>:<d1>:<d2>:v<N>". Blank discriminants become "all".
func Key(name string, version int, discriminants ...string) string {
	parts := make([]string, 0, len(discriminants)+2)
	parts = append(parts, name)
	for _, d := range discriminants {
		d = strings.TrimSpace(d)
		if d == "" {
			d = "all"
		}
		parts = append(parts, d)
	}
	parts = append(parts, fmt.Sprintf("v%d", version))
	return strings.Join(parts, ":")
}

// Load returns the cached JSON for key, computing and persisting it when the
// entry is missing or older than ttl. Concurrent misses on one key in this
// process share a single compute; across processes the last writer wins.
// A caller whose ctx ends stops waiting without cancelling the compute.
// A durable store failure is returned as store.ErrUnavailable.
func (c *Cache) Load(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (json.RawMessage, error) {
	ctx, span := observability.Tracer("cache").Start(ctx, "cache.Load")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	now := c.now()
	if c.mem != nil {
		if v, ok := c.mem.get(key, now); ok {
			c.metrics.IncCacheLookup("memory", "hit")
			span.SetAttributes(attribute.String("cache.result", "memory_hit"))
			return v, nil
		}
		c.metrics.IncCacheLookup("memory", "miss")
	}

	entry, err := c.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry.Fresh(now) {
		c.metrics.IncCacheLookup("durable", "hit")
		span.SetAttributes(attribute.String("cache.result", "durable_hit"))
		c.remember(entry)
		return json.RawMessage(entry.Value), nil
	}
	if entry != nil {
		c.metrics.IncCacheLookup("durable", "expired")
	} else {
		c.metrics.IncCacheLookup("durable", "miss")
	}

	span.SetAttributes(attribute.String("cache.result", "computed"))
	ch := c.group.DoChan(key, func() (any, error) {
		cctx, cancel := c.detached(ctx)
		defer cancel()
		return c.recompute(cctx, key, ttl, compute)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			c.log.Debug("cache compute shared", "key", key)
		}
		return r.Val.(json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// detached keeps ctx values such as the active span but drops its
// cancellation, bounding the compute by ComputeTimeout instead.
func (c *Cache) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.compute <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.compute)
}

func (c *Cache) recompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (json.RawMessage, error) {
	name := keyName(key)
	start := time.Now()
	v, err := compute(ctx)
	if err != nil {
		c.metrics.IncCacheCompute(name, "error")
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.metrics.IncCacheCompute(name, "error")
		return nil, fmt.Errorf("encode cache value %q: %w", key, err)
	}
	entry := &domain.CacheEntry{
		Key:        key,
		Value:      datatypes.JSON(raw),
		ComputedAt: c.now(),
		TTLSeconds: int(ttl / time.Second),
	}
	if err := c.put(ctx, entry); err != nil {
		c.metrics.IncCacheCompute(name, "error")
		return nil, err
	}
	c.metrics.IncCacheCompute(name, "ok")
	c.log.Debug("cache recomputed", "key", key, "ttl_seconds", entry.TTLSeconds, "took_ms", time.Since(start).Milliseconds())
	c.remember(entry)
	return json.RawMessage(raw), nil
}

func (c *Cache) remember(entry *domain.CacheEntry) {
	if c.mem == nil || entry == nil {
		return
	}
	exp := entry.ComputedAt.Add(time.Duration(entry.TTLSeconds) * time.Second)
	c.mem.put(entry.Key, json.RawMessage(entry.Value), exp, c.now())
}

func (c *Cache) get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.IncCacheStoreError("get")
		c.log.Warn("cache store get failed", "key", key, "error", err)
		return nil, store.Unavailable("cache get", err)
	}
	return entry, nil
}

func (c *Cache) put(ctx context.Context, entry *domain.CacheEntry) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.store.Put(ctx, entry); err != nil {
		c.metrics.IncCacheStoreError("put")
		c.log.Warn("cache store put failed", "key", entry.Key, "error", err)
		return store.Unavailable("cache put", err)
	}
	return nil
}

func (c *Cache) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func keyName(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// GetOrCompute is the typed form of Load. Hits and fresh computes both decode
// from the stored JSON, so callers see the same shape either way.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var out T
	raw, err := c.Load(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode cache value %q: %w", key, err)
	}
	return out, nil
}
