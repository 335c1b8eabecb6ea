package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/reporting/dates"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
)

type MonthCount struct {
	YearMonth string `json:"yearMonth"`
	Count     int64  `json:"count"`
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts day, week or month; blank means month.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", raw)
	}
}

// Key formats t as YYYY-MM-DD, YYYY-Www (ISO week) or YYYY-MM.
func (p Period) Key(t time.Time) string {
	switch p {
	case PeriodDay:
		return t.Format(dates.Layout)
	case PeriodWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	default:
		return t.Format("2006-01")
	}
}

type PeriodCount struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

type CrossCount struct {
	Field1 string `json:"field1"`
	Field2 string `json:"field2"`
	Count  int64  `json:"count"`
}

// GroupByMonth buckets records by creation month, ascending, keeping only the
// most recent limit months when limit > 0. Records without a parsable
// creation date are left out.
func (e *Engine) GroupByMonth(ctx context.Context, where filter.Spec, limit int) ([]MonthCount, error) {
	ctx, span := observability.Tracer("aggregate").Start(ctx, "aggregate.GroupByMonth")
	defer span.End()

	counts, err := e.countByPeriod(ctx, where, PeriodMonth)
	if err != nil {
		return nil, err
	}
	out := make([]MonthCount, 0, len(counts))
	for _, pc := range counts {
		out = append(out, MonthCount{YearMonth: pc.Period, Count: pc.Count})
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	span.SetAttributes(attribute.Int("aggregate.months", len(out)))
	e.metrics.IncAggregation("group_by_month", pathMemory)
	return out, nil
}

// GroupByPeriod buckets records by creation date at the given granularity,
// ascending by period key.
func (e *Engine) GroupByPeriod(ctx context.Context, where filter.Spec, period Period) ([]PeriodCount, error) {
	ctx, span := observability.Tracer("aggregate").Start(ctx, "aggregate.GroupByPeriod")
	defer span.End()
	span.SetAttributes(attribute.String("aggregate.period", string(period)))

	out, err := e.countByPeriod(ctx, where, period)
	if err != nil {
		return nil, err
	}
	e.metrics.IncAggregation("group_by_period", pathMemory)
	return out, nil
}

func (e *Engine) countByPeriod(ctx context.Context, where filter.Spec, period Period) ([]PeriodCount, error) {
	records, err := e.records(ctx, where)
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, rec := range records {
		t, ok := dates.CreationTime(rec)
		if !ok {
			continue
		}
		counts[period.Key(t)]++
	}
	out := make([]PeriodCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, PeriodCount{Period: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

// CrossAggregate counts records per (field1, field2) pair. A date-valued
// field2 is bucketed by month exactly like GroupByMonth, and records without
// that date are left out. Sorted by count descending, then field1 and field2.
func (e *Engine) CrossAggregate(ctx context.Context, field1, field2 string, where filter.Spec) ([]CrossCount, error) {
	ctx, span := observability.Tracer("aggregate").Start(ctx, "aggregate.CrossAggregate")
	defer span.End()

	res1 := e.resolve(field1)
	res2 := e.resolve(field2)
	span.SetAttributes(
		attribute.String("aggregate.field1", string(res1.Field)),
		attribute.String("aggregate.field2", string(res2.Field)),
	)

	records, err := e.records(ctx, where)
	if err != nil {
		return nil, err
	}
	type pair struct{ a, b string }
	counts := map[pair]int64{}
	for _, rec := range records {
		b, ok := secondKey(rec, res2)
		if !ok {
			continue
		}
		counts[pair{a: firstKey(rec, res1), b: b}]++
	}
	out := make([]CrossCount, 0, len(counts))
	for p, c := range counts {
		out = append(out, CrossCount{Field1: p.a, Field2: p.b, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Field1 != out[j].Field1 {
			return out[i].Field1 < out[j].Field1
		}
		return out[i].Field2 < out[j].Field2
	})
	e.metrics.IncAggregation("cross", pathMemory)
	return out, nil
}

func firstKey(rec *domain.Record, res fields.Resolution) string {
	if res.Date {
		if d, ok := dates.FieldDate(rec, res.Field); ok {
			return d
		}
		return NotInformed
	}
	return keyOf(rec, res)
}

func secondKey(rec *domain.Record, res fields.Resolution) (string, bool) {
	if !res.Date {
		return keyOf(rec, res), true
	}
	d, ok := dates.FieldDate(rec, res.Field)
	if !ok {
		return "", false
	}
	return d[:7], true
}
