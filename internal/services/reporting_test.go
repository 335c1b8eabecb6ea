package services

import (
	"context"
	"sync"
	"testing"
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

type countingRecords struct {
	mu      sync.Mutex
	records []*domain.Record
	groups  int
	finds   int
}

func (s *countingRecords) Find(context.Context, store.Query) ([]*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	return s.records, nil
}

func (s *countingRecords) GroupCount(_ context.Context, column string, _ []store.Predicate) (store.GroupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups++
	counts := map[string]int64{}
	for _, r := range s.records {
		if v := r.RawColumn(column); v != nil {
			counts[*v]++
		}
	}
	var res store.GroupResult
	for k, n := range counts {
		k := k
		res.Rows = append(res.Rows, store.GroupRow{Key: &k, Count: n})
	}
	return res, nil
}

func (s *countingRecords) Count(context.Context, []store.Predicate) (int64, error) {
	return int64(len(s.records)), nil
}

type mapCacheStore struct {
	mu   sync.Mutex
	rows map[string]*domain.CacheEntry
}

func (m *mapCacheStore) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key], nil
}

func (m *mapCacheStore) Put(_ context.Context, e *domain.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[e.Key] = e
	return nil
}

func newTestService(t *testing.T, recs []*domain.Record, now time.Time) (ReportingService, *countingRecords, *mapCacheStore) {
	t.Helper()
	resolver, err := fields.NewResolver(nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	st := &countingRecords{records: recs}
	cs := &mapCacheStore{rows: map[string]*domain.CacheEntry{}}
	log := logger.Nop()
	filters := filter.NewEngine(st, resolver, log, 0)
	svc := NewReportingService(log, ReportingDeps{
		Cache:      cache.New(cs, log, nil, cache.Options{Now: func() time.Time { return now }}),
		Filters:    filters,
		Aggregates: aggregate.NewEngine(st, filters, log, nil, 0),
		Deadlines:  deadline.New(deadline.DefaultPolicy()),
		TTLs:       TTLs{Aggregate: time.Minute, Filter: time.Minute, Deadline: time.Minute},
		Now:        func() time.Time { return now },
	})
	return svc, st, cs
}

func TestGroupByAliasesShareCacheEntry(t *testing.T) {
	recs := []*domain.Record{
		{ID: "1", Channel: domain.PtrString("WhatsApp")},
		{ID: "2", Channel: domain.PtrString("WhatsApp")},
		{ID: "3", Channel: domain.PtrString("E-mail")},
	}
	svc, st, cs := newTestService(t, recs, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := svc.GroupBy(ctx, "canal", Scope{})
	if err != nil {
		t.Fatalf("GroupBy canal: %v", err)
	}
	second, err := svc.GroupBy(ctx, "Channel", Scope{})
	if err != nil {
		t.Fatalf("GroupBy Channel: %v", err)
	}
	if st.groups != 1 {
		t.Fatalf("store group calls: want=1 got=%d", st.groups)
	}
	if len(first) != 2 || first[0].Key != "WhatsApp" || first[0].Count != 2 || len(second) != len(first) {
		t.Fatalf("groups: first=%v second=%v", first, second)
	}
	want := cache.Key("groupBy", groupByVersion, "channel", "unit=", "server=", "organ=")
	if _, ok := cs.rows[want]; !ok {
		t.Fatalf("cache key %q not stored; have %v", want, keys(cs))
	}
}

func TestScopeChangesCacheKey(t *testing.T) {
	recs := []*domain.Record{
		{ID: "1", Channel: domain.PtrString("WhatsApp"), Organ: domain.PtrString("Saude")},
		{ID: "2", Channel: domain.PtrString("E-mail"), Organ: domain.PtrString("Obras")},
	}
	svc, _, cs := newTestService(t, recs, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	all, err := svc.Count(ctx, Scope{})
	if err != nil || all != 2 {
		t.Fatalf("Count all: want=2 got=%d err=%v", all, err)
	}
	scoped, err := svc.Count(ctx, Scope{Organ: "saude"})
	if err != nil || scoped != 1 {
		t.Fatalf("Count scoped: want=1 got=%d err=%v", scoped, err)
	}
	if len(cs.rows) != 2 {
		t.Fatalf("cache entries: want=2 got=%v", keys(cs))
	}
}

func TestFilterEquivalentSpecsShareEntry(t *testing.T) {
	recs := []*domain.Record{{ID: "1", Channel: domain.PtrString("WhatsApp")}}
	svc, _, cs := newTestService(t, recs, time.Now())
	ctx := context.Background()

	a := filter.Spec{{Field: " canal ", Operator: "equals", Value: "WhatsApp"}}
	b := filter.Spec{{Field: "canal", Operator: "eq", Value: "WhatsApp"}}
	if _, err := svc.Filter(ctx, a); err != nil {
		t.Fatalf("Filter a: %v", err)
	}
	if _, err := svc.Filter(ctx, b); err != nil {
		t.Fatalf("Filter b: %v", err)
	}
	if len(cs.rows) != 1 {
		t.Fatalf("cache entries: want=1 got=%v", keys(cs))
	}

	out, err := svc.Filter(ctx, nil)
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("empty spec: want empty non-nil got=%v err=%v", out, err)
	}
}

func TestSLASummaryKeyedByDay(t *testing.T) {
	recs := []*domain.Record{
		{ID: "1", CreationDateISO: domain.PtrString("2024-05-20"), Status: domain.PtrString("Em andamento")},
	}
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, _, cs := newTestService(t, recs, now)

	sum, err := svc.SLASummary(context.Background(), Scope{})
	if err != nil {
		t.Fatalf("SLASummary: %v", err)
	}
	if sum.Total() != 1 || sum.OnTrack != 1 {
		t.Fatalf("summary: %+v", sum)
	}
	want := cache.Key("slaSummary", slaVersion, "2024-06-01", "unit=", "server=", "organ=")
	if _, ok := cs.rows[want]; !ok {
		t.Fatalf("cache key %q not stored; have %v", want, keys(cs))
	}
}

func keys(cs *mapCacheStore) []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]string, 0, len(cs.rows))
	for k := range cs.rows {
		out = append(out, k)
	}
	return out
}
