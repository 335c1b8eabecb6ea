package aggregate

import (
	"context"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/reporting/dates"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

// Average is the mean resolution time of one group. Resolved counts the
// records that contributed a figure; AverageDays is 0 when none did.
type Average struct {
	Key         string  `json:"key"`
	Count       int64   `json:"count"`
	Resolved    int64   `json:"resolved"`
	AverageDays float64 `json:"averageDays"`
}

// AverageResolution groups by field and averages ResolutionDays (zero-day
// figures excluded) per group. Ordering follows GroupBy.
func (e *Engine) AverageResolution(ctx context.Context, field string, where filter.Spec) ([]Average, error) {
	ctx, span := observability.Tracer("aggregate").Start(ctx, "aggregate.AverageResolution")
	defer span.End()

	res := e.resolve(field)
	span.SetAttributes(attribute.String("aggregate.field", string(res.Field)))

	records, err := e.records(ctx, where)
	if err != nil {
		return nil, err
	}
	type acc struct {
		count, resolved int64
		sum             int64
	}
	groups := map[string]*acc{}
	for _, rec := range records {
		k := firstKey(rec, res)
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}
		a.count++
		if d, ok := dates.ResolutionDays(rec, false); ok {
			a.resolved++
			a.sum += int64(d)
		}
	}
	out := make([]Average, 0, len(groups))
	for k, a := range groups {
		avg := Average{Key: k, Count: a.count, Resolved: a.resolved}
		if a.resolved > 0 {
			avg.AverageDays = math.Round(float64(a.sum)/float64(a.resolved)*100) / 100
		}
		out = append(out, avg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	e.metrics.IncAggregation("average_resolution", pathMemory)
	return out, nil
}

// Count returns the number of records matching where. The unfiltered total
// comes straight from the store; filtered counts use the filter engine so
// values held only in the payload are counted.
func (e *Engine) Count(ctx context.Context, where filter.Spec) (int64, error) {
	if len(where) > 0 {
		rows, err := e.filters.Apply(ctx, where)
		if err != nil {
			return 0, err
		}
		return int64(len(rows)), nil
	}
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	start := time.Now()
	n, err := e.store.Count(ctx, nil)
	e.metrics.ObserveStore("count", err, time.Since(start))
	if err != nil {
		return 0, store.Unavailable("count records", err)
	}
	return n, nil
}
