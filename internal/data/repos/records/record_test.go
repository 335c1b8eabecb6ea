package records

import (
	"context"
	"testing"

	"github.com/ouvidoriag/ogdash2/internal/data/repos/testutil"
	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

func seedChannels(t *testing.T) RecordRepo {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	for _, f := range []testutil.RecordFields{
		{Protocol: "P-1", Channel: "WhatsApp", Subject: "desconto 50% iptu"},
		{Protocol: "P-2", Channel: "WhatsApp", Subject: "desconto 500"},
		{Protocol: "P-3", Channel: " whatsapp ", Organ: "Saude"},
		{Protocol: "P-4", Channel: "E-mail", Organ: "Saude"},
		{Protocol: "P-5", Payload: `{"canal":"WhatsApp"}`},
		{Protocol: "P-6", Channel: "   "},
	} {
		testutil.SeedRecord(t, ctx, db, f)
	}
	return NewRecordRepo(db, testutil.Logger(t))
}

func TestRecordRepoFindPredicates(t *testing.T) {
	repo := seedChannels(t)
	ctx := context.Background()

	cases := []struct {
		name string
		pred store.Predicate
		want int
	}{
		{"eq ignores case and padding", store.Predicate{Column: domain.ColumnChannel, Op: store.OpEquals, Value: "WHATSAPP"}, 3},
		{"eq with missing", store.Predicate{Column: domain.ColumnChannel, Op: store.OpEquals, Value: "whatsapp", IncludeMissing: true}, 5},
		{"contains", store.Predicate{Column: domain.ColumnChannel, Op: store.OpContains, Value: "MAIL"}, 1},
		{"starts with trims", store.Predicate{Column: domain.ColumnChannel, Op: store.OpStartsWith, Value: "whats"}, 3},
		{"contains escapes wildcards", store.Predicate{Column: domain.ColumnSubject, Op: store.OpContains, Value: "50%"}, 1},
		{"missing", store.Predicate{Column: domain.ColumnChannel, Op: store.OpMissing}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := repo.Find(ctx, store.Query{Where: []store.Predicate{tc.pred}})
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if len(rows) != tc.want {
				t.Fatalf("rows: want=%d got=%d", tc.want, len(rows))
			}
		})
	}
}

func TestRecordRepoFindProjectionAndLimit(t *testing.T) {
	repo := seedChannels(t)
	ctx := context.Background()

	rows, err := repo.Find(ctx, store.Query{
		Where:   []store.Predicate{{Column: domain.ColumnOrgan, Op: store.OpEquals, Value: "saude"}},
		Columns: []string{domain.ColumnChannel},
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: want=2 got=%d", len(rows))
	}
	for _, r := range rows {
		if r.ID == "" || r.Channel == nil {
			t.Fatalf("projected row missing id or channel: %+v", r)
		}
		if r.Organ != nil || r.Protocol != nil {
			t.Fatalf("projection leaked unselected columns: %+v", r)
		}
	}

	limited, err := repo.Find(ctx, store.Query{Limit: 2})
	if err != nil {
		t.Fatalf("Find limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit: want=2 got=%d", len(limited))
	}

	if _, err := repo.Find(ctx, store.Query{Where: []store.Predicate{{Column: "payload", Op: store.OpEquals, Value: "x"}}}); err == nil {
		t.Fatalf("predicate on payload: want error")
	}
	if _, err := repo.Find(ctx, store.Query{Columns: []string{"nope"}}); err == nil {
		t.Fatalf("unknown projection: want error")
	}
}

func TestRecordRepoGroupCount(t *testing.T) {
	repo := seedChannels(t)
	ctx := context.Background()

	res, err := repo.GroupCount(ctx, domain.ColumnChannel, nil)
	if err != nil {
		t.Fatalf("GroupCount: %v", err)
	}
	if res.Unsupported {
		t.Fatalf("GroupCount unsupported: %s", res.Reason)
	}
	got := map[string]int64{}
	for _, row := range res.Rows {
		key := "<nil>"
		if row.Key != nil {
			key = *row.Key
		}
		got[key] += row.Count
	}
	want := map[string]int64{"WhatsApp": 2, "whatsapp": 1, "E-mail": 1, "<nil>": 1, "": 1}
	if len(got) != len(want) {
		t.Fatalf("groups: want=%v got=%v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("group %q: want=%d got=%d", k, v, got[k])
		}
	}

	filtered, err := repo.GroupCount(ctx, domain.ColumnChannel, []store.Predicate{{Column: domain.ColumnOrgan, Op: store.OpEquals, Value: "SAUDE"}})
	if err != nil || filtered.Unsupported {
		t.Fatalf("filtered GroupCount: err=%v res=%+v", err, filtered)
	}
	if len(filtered.Rows) != 2 {
		t.Fatalf("filtered groups: want=2 got=%d", len(filtered.Rows))
	}

	res, err = repo.GroupCount(ctx, domain.ColumnPayload, nil)
	if err != nil {
		t.Fatalf("GroupCount payload: %v", err)
	}
	if !res.Unsupported || res.Reason == "" {
		t.Fatalf("payload group: want unsupported with reason got=%+v", res)
	}
}

func TestRecordRepoCount(t *testing.T) {
	repo := seedChannels(t)
	ctx := context.Background()

	n, err := repo.Count(ctx, nil)
	if err != nil || n != 6 {
		t.Fatalf("Count all: want=6 got=%d err=%v", n, err)
	}
	n, err = repo.Count(ctx, []store.Predicate{{Column: domain.ColumnChannel, Op: store.OpEquals, Value: "e-mail"}})
	if err != nil || n != 1 {
		t.Fatalf("Count filtered: want=1 got=%d err=%v", n, err)
	}
}

func TestRecordRepoPredicatesFoldBeyondASCII(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	for _, f := range []testutil.RecordFields{
		{Protocol: "P-1", Organ: "SECRETARIA DE SAÚDE"},
		{Protocol: "P-2", Organ: "secretaria de saúde\u00a0"},
		{Protocol: "P-3", Organ: "\tSecretaria de Saúde\n"},
		{Protocol: "P-4", Organ: "Gabinete do Prefeito"},
		{Protocol: "P-5", Payload: `{"Secretaria":"Secretaria de Saúde"}`},
	} {
		testutil.SeedRecord(t, ctx, db, f)
	}
	repo := NewRecordRepo(db, testutil.Logger(t))

	eng := filter.NewEngine(repo, nil, testutil.Logger(t), 0)
	spec := filter.Spec{{Field: "orgao", Operator: "eq", Value: "Secretaria de Saúde"}}
	got, err := eng.Apply(ctx, spec)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	all, err := repo.Find(ctx, store.Query{})
	if err != nil {
		t.Fatalf("Find all: %v", err)
	}
	want, err := filter.ApplyInMemory(nil, all, spec)
	if err != nil {
		t.Fatalf("ApplyInMemory: %v", err)
	}
	if len(want) != 4 {
		t.Fatalf("in-memory matches: want=4 got=%d", len(want))
	}
	if len(got) != len(want) {
		t.Fatalf("store path: want=%d got=%d", len(want), len(got))
	}

	rows, err := repo.Find(ctx, store.Query{Where: []store.Predicate{{Column: domain.ColumnOrgan, Op: store.OpContains, Value: "SAÚDE"}}})
	if err != nil {
		t.Fatalf("Find contains: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("contains accented: want=3 got=%d", len(rows))
	}
}

func TestFoldPattern(t *testing.T) {
	cases := map[string]string{
		"WhatsApp": "what_app",
		"Saúde":    "_a_de",
		"50%_x":    `50\%\_x`,
		"Kelvin":   "_elvin",
		`a\b`:      `a\\b`,
	}
	for in, want := range cases {
		if got := foldPattern(in); got != want {
			t.Fatalf("foldPattern(%q): want=%q got=%q", in, want, got)
		}
	}
}
