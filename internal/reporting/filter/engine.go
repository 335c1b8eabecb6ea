// Package filter turns caller-supplied filter lists into store predicates plus
// an in-memory verification pass over the normalized-column/payload precedence.
package filter

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/reporting/dates"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

var yearMonthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Compiled is one filter bound to its storage location.
type Compiled struct {
	Filter     Filter
	Resolution fields.Resolution
	// Pushed is set when the filter contributed a store predicate.
	Pushed bool
	want   string
}

// Plan is the result of compiling a Spec.
type Plan struct {
	Filters []Compiled
	// Predicates are supersets: they admit rows whose column is missing so
	// that the in-memory pass can consult the payload.
	Predicates []store.Predicate
	// Residual counts filters with no store predicate.
	Residual int
}

func (p Plan) Empty() bool { return len(p.Filters) == 0 }

// Matches evaluates every filter of the plan against rec.
func (p Plan) Matches(rec *domain.Record) bool {
	for _, c := range p.Filters {
		if !c.matches(rec) {
			return false
		}
	}
	return true
}

// Compile resolves each filter in order. Unknown fields and payload-only
// fields become residual filters; nothing here touches the store.
func Compile(resolver *fields.Resolver, spec Spec) (Plan, error) {
	if resolver == nil {
		resolver = fields.Default()
	}
	spec, err := spec.Normalize()
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Filters: make([]Compiled, 0, len(spec))}
	for _, f := range spec {
		res, err := resolver.Resolve(f.Field)
		if errors.Is(err, fields.ErrUnknownField) {
			res = fields.Unresolved(f.Field)
		}
		c := Compiled{Filter: f, Resolution: res, want: f.Value}
		if res.Date && f.Operator == OpEq {
			if norm, ok := dates.Normalize(f.Value); ok {
				c.want = norm
			}
		}
		if pred, ok := predicateFor(c); ok {
			c.Pushed = true
			plan.Predicates = append(plan.Predicates, pred)
		} else {
			plan.Residual++
		}
		plan.Filters = append(plan.Filters, c)
	}
	return plan, nil
}

func predicateFor(c Compiled) (store.Predicate, bool) {
	res := c.Resolution
	if res.Kind != fields.KindColumn || !domain.IsTextColumn(res.Column) {
		return store.Predicate{}, false
	}
	pred := store.Predicate{Column: res.Column, Value: c.want, IncludeMissing: true}
	switch c.Filter.Operator {
	case OpEq:
		pred.Op = store.OpEquals
		if res.Date {
			// ISO columns may carry a time suffix.
			pred.Op = store.OpStartsWith
		}
	case OpContains:
		pred.Op = store.OpContains
		if res.Date && yearMonthRe.MatchString(c.want) {
			pred.Op = store.OpStartsWith
		}
	default:
		return store.Predicate{}, false
	}
	return pred, true
}

func (c Compiled) value(rec *domain.Record) (string, bool) {
	if c.Resolution.Date {
		return dates.FieldDate(rec, c.Resolution.Field)
	}
	return fields.Read(rec, c.Resolution)
}

func (c Compiled) matches(rec *domain.Record) bool {
	got, ok := c.value(rec)
	if !ok {
		return false
	}
	got = strings.TrimSpace(got)
	want := strings.TrimSpace(c.want)
	switch c.Filter.Operator {
	case OpEq:
		return strings.EqualFold(got, want)
	case OpContains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	default:
		return false
	}
}

// ApplyInMemory filters records without a store. An empty spec yields an
// empty result.
func ApplyInMemory(resolver *fields.Resolver, records []*domain.Record, spec Spec) ([]*domain.Record, error) {
	out := []*domain.Record{}
	if len(spec) == 0 {
		return out, nil
	}
	plan, err := Compile(resolver, spec)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if plan.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Engine runs filter plans against a RecordStore.
type Engine struct {
	store    store.RecordStore
	resolver *fields.Resolver
	log      *logger.Logger
	timeout  time.Duration
}

func NewEngine(st store.RecordStore, resolver *fields.Resolver, baseLog *logger.Logger, timeout time.Duration) *Engine {
	if resolver == nil {
		resolver = fields.Default()
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Engine{
		store:    st,
		resolver: resolver,
		log:      baseLog.With("service", "FilterEngine"),
		timeout:  timeout,
	}
}

func (e *Engine) Resolver() *fields.Resolver { return e.resolver }

// Compile binds spec to this engine's alias table.
func (e *Engine) Compile(spec Spec) (Plan, error) { return Compile(e.resolver, spec) }

// Apply fetches the candidate set with the plan's store predicates and keeps
// only rows matching every filter in memory. An empty spec returns an empty
// result without touching the store. No row cap is applied.
func (e *Engine) Apply(ctx context.Context, spec Spec) ([]*domain.Record, error) {
	out := []*domain.Record{}
	if len(spec) == 0 {
		return out, nil
	}
	plan, err := e.Compile(spec)
	if err != nil {
		return nil, err
	}
	rows, err := e.Fetch(ctx, store.Query{Where: plan.Predicates})
	if err != nil {
		return nil, err
	}
	for _, rec := range rows {
		if plan.Matches(rec) {
			out = append(out, rec)
		}
	}
	e.log.Debug("filter applied",
		"filters", len(plan.Filters),
		"pushed", len(plan.Predicates),
		"residual", plan.Residual,
		"candidates", len(rows),
		"matched", len(out),
	)
	return out, nil
}

// Fetch runs a bounded store read. Timeouts and store failures come back as
// store.ErrUnavailable.
func (e *Engine) Fetch(ctx context.Context, q store.Query) ([]*domain.Record, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	rows, err := e.store.Find(ctx, q)
	if err != nil {
		return nil, store.Unavailable("find records", err)
	}
	return rows, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
