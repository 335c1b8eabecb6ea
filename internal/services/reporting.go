package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ouvidoriag/ogdash2/internal/cache"
	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/reporting/aggregate"
	"github.com/ouvidoriag/ogdash2/internal/reporting/deadline"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

// Cache key versions. Bump one whenever the shape of that result changes.
const (
	groupByVersion    = 2
	resolutionVersion = 1
	monthVersion      = 1
	periodVersion     = 1
	crossVersion      = 1
	filterVersion     = 1
	slaVersion        = 1
	upcomingVersion   = 1
	countVersion      = 1
)

// Scope narrows a report to one registering unit, server or organ. Each set
// dimension becomes an equality filter and part of the cache key.
type Scope struct {
	Unit   string
	Server string
	Organ  string
}

func (s Scope) Spec() filter.Spec {
	var spec filter.Spec
	add := func(f fields.Field, v string) {
		if v = strings.TrimSpace(v); v != "" {
			spec = append(spec, filter.Filter{Field: string(f), Operator: filter.OpEq, Value: v})
		}
	}
	add(fields.RegisteringUnit, s.Unit)
	add(fields.Responsible, s.Server)
	add(fields.Organ, s.Organ)
	return spec
}

func (s Scope) discriminants() []string {
	norm := func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }
	return []string{"unit=" + norm(s.Unit), "server=" + norm(s.Server), "organ=" + norm(s.Organ)}
}

type TTLs struct {
	Aggregate time.Duration
	Filter    time.Duration
	Deadline  time.Duration
}

type ReportingService interface {
	GroupBy(ctx context.Context, field string, scope Scope) ([]aggregate.Group, error)
	AverageResolution(ctx context.Context, field string, scope Scope) ([]aggregate.Average, error)
	ByMonth(ctx context.Context, limit int, scope Scope) ([]aggregate.MonthCount, error)
	ByPeriod(ctx context.Context, period aggregate.Period, scope Scope) ([]aggregate.PeriodCount, error)
	Cross(ctx context.Context, field1, field2 string, scope Scope) ([]aggregate.CrossCount, error)
	Count(ctx context.Context, scope Scope) (int64, error)
	Filter(ctx context.Context, spec filter.Spec) ([]*domain.Record, error)
	SLASummary(ctx context.Context, scope Scope) (deadline.Summary, error)
	Upcoming(ctx context.Context, withinDays int, scope Scope) ([]deadline.Due, error)
}

type ReportingDeps struct {
	Cache      *cache.Cache
	Filters    *filter.Engine
	Aggregates *aggregate.Engine
	Deadlines  *deadline.Engine
	TTLs       TTLs
	Location   *time.Location
	Now        func() time.Time
}

type reportingService struct {
	log        *logger.Logger
	cache      *cache.Cache
	filters    *filter.Engine
	aggregates *aggregate.Engine
	deadlines  *deadline.Engine
	ttls       TTLs
	loc        *time.Location
	now        func() time.Time
}

func NewReportingService(log *logger.Logger, deps ReportingDeps) ReportingService {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &reportingService{
		log:        log.With("service", "ReportingService"),
		cache:      deps.Cache,
		filters:    deps.Filters,
		aggregates: deps.Aggregates,
		deadlines:  deps.Deadlines,
		ttls:       deps.TTLs,
		loc:        deps.Location,
		now:        deps.Now,
	}
}

func (s *reportingService) today() time.Time { return s.now().In(s.loc) }

func (s *reportingService) GroupBy(ctx context.Context, field string, scope Scope) ([]aggregate.Group, error) {
	key := cache.Key("groupBy", groupByVersion, append([]string{s.fieldKey(field)}, scope.discriminants()...)...)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Aggregate, func(ctx context.Context) ([]aggregate.Group, error) {
		return s.aggregates.GroupBy(ctx, field, scope.Spec())
	})
}

func (s *reportingService) AverageResolution(ctx context.Context, field string, scope Scope) ([]aggregate.Average, error) {
	key := cache.Key("avgResolution", resolutionVersion, append([]string{s.fieldKey(field)}, scope.discriminants()...)...)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Aggregate, func(ctx context.Context) ([]aggregate.Average, error) {
		return s.aggregates.AverageResolution(ctx, field, scope.Spec())
	})
}

func (s *reportingService) ByMonth(ctx context.Context, limit int, scope Scope) ([]aggregate.MonthCount, error) {
	key := cache.Key("byMonth", monthVersion, append([]string{"limit=" + strconv.Itoa(limit)}, scope.discriminants()...)...)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Aggregate, func(ctx context.Context) ([]aggregate.MonthCount, error) {
		return s.aggregates.GroupByMonth(ctx, scope.Spec(), limit)
	})
}

func (s *reportingService) ByPeriod(ctx context.Context, period aggregate.Period, scope Scope) ([]aggregate.PeriodCount, error) {
	key := cache.Key("byPeriod", periodVersion, append([]string{string(period)}, scope.discriminants()...)...)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Aggregate, func(ctx context.Context) ([]aggregate.PeriodCount, error) {
		return s.aggregates.GroupByPeriod(ctx, scope.Spec(), period)
	})
}

func (s *reportingService) Cross(ctx context.Context, field1, field2 string, scope Scope) ([]aggregate.CrossCount, error) {
	key := cache.Key("cross", crossVersion, append([]string{s.fieldKey(field1), s.fieldKey(field2)}, scope.discriminants()...)...)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Aggregate, func(ctx context.Context) ([]aggregate.CrossCount, error) {
		return s.aggregates.CrossAggregate(ctx, field1, field2, scope.Spec())
	})
}

func (s *reportingService) Count(ctx context.Context, scope Scope) (int64, error) {
	key := cache.Key("count", countVersion, scope.discriminants()...)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Aggregate, func(ctx context.Context) (int64, error) {
		return s.aggregates.Count(ctx, scope.Spec())
	})
}

// Filter caches by a digest of the normalized spec, so equivalent spellings
// of one filter list share an entry.
func (s *reportingService) Filter(ctx context.Context, spec filter.Spec) ([]*domain.Record, error) {
	spec, err := spec.Normalize()
	if err != nil {
		return nil, err
	}
	if len(spec) == 0 {
		return []*domain.Record{}, nil
	}
	key := cache.Key("filter", filterVersion, specDigest(spec))
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Filter, func(ctx context.Context) ([]*domain.Record, error) {
		return s.filters.Apply(ctx, spec)
	})
}

func (s *reportingService) SLASummary(ctx context.Context, scope Scope) (deadline.Summary, error) {
	today := s.today()
	key := cache.Key("slaSummary", slaVersion, append([]string{today.Format("2006-01-02")}, scope.discriminants()...)...)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Deadline, func(ctx context.Context) (deadline.Summary, error) {
		records, err := s.records(ctx, scope)
		if err != nil {
			return deadline.Summary{}, err
		}
		return s.deadlines.Summarize(records, today), nil
	})
}

func (s *reportingService) Upcoming(ctx context.Context, withinDays int, scope Scope) ([]deadline.Due, error) {
	today := s.today()
	key := cache.Key("upcoming", upcomingVersion, append([]string{today.Format("2006-01-02"), "within=" + strconv.Itoa(withinDays)}, scope.discriminants()...)...)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttls.Deadline, func(ctx context.Context) ([]deadline.Due, error) {
		records, err := s.records(ctx, scope)
		if err != nil {
			return nil, err
		}
		return s.deadlines.Upcoming(records, today, withinDays), nil
	})
}

// records loads the scope's records; an empty scope is the whole table.
func (s *reportingService) records(ctx context.Context, scope Scope) ([]*domain.Record, error) {
	spec := scope.Spec()
	if len(spec) == 0 {
		return s.filters.Fetch(ctx, store.Query{})
	}
	return s.filters.Apply(ctx, spec)
}

// fieldKey canonicalizes a field name so aliases share one cache entry.
func (s *reportingService) fieldKey(field string) string {
	if res, err := s.filters.Resolver().Resolve(field); err == nil {
		return string(res.Field)
	}
	return "raw=" + strings.ToLower(strings.TrimSpace(field))
}

func specDigest(spec filter.Spec) string {
	raw, _ := json.Marshal(spec)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:12])
}
