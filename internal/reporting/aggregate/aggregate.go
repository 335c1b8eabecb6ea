// Package aggregate computes grouped counts and averages over records.
// Unfiltered column group-bys go to the store first. Everything else is
// grouped in memory with the same keys and ordering.
package aggregate

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

// NotInformed is the group key for null or blank values.
const NotInformed = "Não informado"

const (
	pathStore    = "store"
	pathFallback = "fallback"
	pathMemory   = "memory"
)

type Group struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Engine struct {
	store    store.RecordStore
	filters  *filter.Engine
	resolver *fields.Resolver
	log      *logger.Logger
	metrics  *observability.Metrics
	timeout  time.Duration
}

func NewEngine(st store.RecordStore, filters *filter.Engine, baseLog *logger.Logger, metrics *observability.Metrics, timeout time.Duration) *Engine {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Engine{
		store:    st,
		filters:  filters,
		resolver: filters.Resolver(),
		log:      baseLog.With("service", "AggregationEngine"),
		metrics:  metrics,
		timeout:  timeout,
	}
}

func (e *Engine) resolve(field string) fields.Resolution {
	res, err := e.resolver.Resolve(field)
	if errors.Is(err, fields.ErrUnknownField) {
		e.log.Debug("unknown aggregation field; reading payload", "field", field)
		return fields.Unresolved(field)
	}
	return res
}

// storeGroupable reports whether res can be grouped by the store. Date columns
// hold free-form timestamps and are always bucketed in memory.
func storeGroupable(res fields.Resolution) bool {
	return res.Kind == fields.KindColumn && !res.Date && domain.IsTextColumn(res.Column)
}

// GroupBy counts records per value of field among those matching where,
// sorted by count descending then key ascending. An empty where groups the
// whole record set.
func (e *Engine) GroupBy(ctx context.Context, field string, where filter.Spec) ([]Group, error) {
	ctx, span := observability.Tracer("aggregate").Start(ctx, "aggregate.GroupBy")
	defer span.End()

	res := e.resolve(field)
	plan, err := e.filters.Compile(where)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("aggregate.field", string(res.Field)),
		attribute.Int("aggregate.filters", len(plan.Filters)),
	)

	// Filtered calls go through the in-memory pass: a store predicate only
	// sees the column, while a filter may match on the payload.
	if storeGroupable(res) && plan.Empty() {
		out, path, err := e.groupColumn(ctx, res)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.String("aggregate.path", path))
		e.metrics.IncAggregation("group_by", path)
		return out, nil
	}

	records, err := e.records(ctx, where)
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, rec := range records {
		counts[keyOf(rec, res)]++
	}
	span.SetAttributes(attribute.String("aggregate.path", pathMemory))
	e.metrics.IncAggregation("group_by", pathMemory)
	return sortGroups(counts), nil
}

// groupColumn groups the whole record set by a column. The store counts rows
// whose column holds a value; rows with a null or blank column are read back
// and keyed through the payload, as in memory. When the store declines, every
// row is keyed in memory from the column and payload projection.
func (e *Engine) groupColumn(ctx context.Context, res fields.Resolution) ([]Group, string, error) {
	column := res.Column
	projection := []string{column, domain.ColumnPayload}

	grouped, err := e.groupCount(ctx, column, nil)
	if err != nil {
		return nil, "", err
	}
	if grouped.Unsupported {
		e.log.Warn("store grouping unsupported; grouping in memory",
			"column", column,
			"reason", grouped.Reason,
		)
		rows, err := e.filters.Fetch(ctx, store.Query{Columns: projection})
		if err != nil {
			return nil, "", err
		}
		counts := map[string]int64{}
		for _, rec := range rows {
			counts[keyOf(rec, res)]++
		}
		return sortGroups(counts), pathFallback, nil
	}

	counts := map[string]int64{}
	missing := false
	for _, row := range grouped.Rows {
		if row.Key == nil || strings.TrimSpace(*row.Key) == "" {
			missing = true
			continue
		}
		counts[strings.TrimSpace(*row.Key)] += row.Count
	}
	if missing {
		rows, err := e.filters.Fetch(ctx, store.Query{
			Where:   []store.Predicate{{Column: column, Op: store.OpMissing}},
			Columns: projection,
		})
		if err != nil {
			return nil, "", err
		}
		for _, rec := range rows {
			counts[keyOf(rec, res)]++
		}
	}
	return sortGroups(counts), pathStore, nil
}

func (e *Engine) groupCount(ctx context.Context, column string, where []store.Predicate) (store.GroupResult, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	start := time.Now()
	res, err := e.store.GroupCount(ctx, column, where)
	e.metrics.ObserveStore("group_count", err, time.Since(start))
	if err != nil {
		return store.GroupResult{}, store.Unavailable("group count", err)
	}
	return res, nil
}

// records returns the filtered record set, or every record when where is
// empty. The empty-filter guard of the filter engine does not apply here:
// an unfiltered aggregation covers the whole table.
func (e *Engine) records(ctx context.Context, where filter.Spec) ([]*domain.Record, error) {
	if len(where) == 0 {
		return e.filters.Fetch(ctx, store.Query{})
	}
	return e.filters.Apply(ctx, where)
}

func keyOf(rec *domain.Record, res fields.Resolution) string {
	if v, ok := fields.Read(rec, res); ok {
		return v
	}
	return NotInformed
}

func sortGroups(counts map[string]int64) []Group {
	out := make([]Group, 0, len(counts))
	for k, c := range counts {
		out = append(out, Group{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
