package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the reporting core's Prometheus collectors. Every method is
// safe on a nil receiver so components can run without metrics in tests.
type Metrics struct {
	apiRequests   *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	apiInflight   prometheus.Gauge
	cacheLookups  *prometheus.CounterVec
	cacheComputes *prometheus.CounterVec
	cacheErrors   *prometheus.CounterVec
	aggregations  *prometheus.CounterVec
	storeLatency  *prometheus.HistogramVec
	sweepOutcomes *prometheus.CounterVec
	sweepDuration prometheus.Histogram
}

// NewMetrics registers every collector on reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ogdash_api_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ogdash_api_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "ogdash_api_inflight_requests",
			Help: "HTTP requests currently being served",
		}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ogdash_cache_lookups_total",
			Help: "Cache lookups by layer (memory, durable) and result (hit, miss, expired)",
		}, []string{"layer", "result"}),
		cacheComputes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ogdash_cache_computes_total",
			Help: "Cache recomputations by key name and outcome",
		}, []string{"name", "outcome"}),
		cacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ogdash_cache_store_errors_total",
			Help: "Durable cache store failures by operation",
		}, []string{"op"}),
		aggregations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ogdash_aggregations_total",
			Help: "Aggregations by kind and execution path (store, fallback, memory)",
		}, []string{"kind", "path"}),
		storeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ogdash_store_duration_seconds",
			Help:    "Record store call latency by operation and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"op", "status"}),
		sweepOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ogdash_notification_sweep_outcomes_total",
			Help: "Notification sweep decisions by kind and outcome",
		}, []string{"kind", "outcome"}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ogdash_notification_sweep_duration_seconds",
			Help:    "Wall time of a full notification sweep",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// IncCacheLookup records a lookup on layer ("memory" or "durable").
func (m *Metrics) IncCacheLookup(layer, result string) {
	if m != nil {
		m.cacheLookups.WithLabelValues(layer, result).Inc()
	}
}

func (m *Metrics) IncCacheCompute(name, outcome string) {
	if m != nil {
		m.cacheComputes.WithLabelValues(name, outcome).Inc()
	}
}

func (m *Metrics) IncCacheStoreError(op string) {
	if m != nil {
		m.cacheErrors.WithLabelValues(op).Inc()
	}
}

// IncAggregation records which path served an aggregation.
func (m *Metrics) IncAggregation(kind, path string) {
	if m != nil {
		m.aggregations.WithLabelValues(kind, path).Inc()
	}
}

func (m *Metrics) ObserveStore(op string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storeLatency.WithLabelValues(op, status).Observe(dur.Seconds())
}

func (m *Metrics) IncSweepOutcome(kind, outcome string) {
	if m != nil {
		m.sweepOutcomes.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) ObserveSweep(dur time.Duration) {
	if m != nil {
		m.sweepDuration.Observe(dur.Seconds())
	}
}
