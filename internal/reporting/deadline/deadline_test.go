package deadline

import (
	"fmt"
	"testing"
	"time"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/reporting/dates"
)

func day(s string) time.Time {
	t, err := time.Parse(dates.Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestPrazoDays(t *testing.T) {
	e := New(DefaultPolicy())
	cases := map[string]int{
		"Pedido de Informação (SIC)": 20,
		"Pedido de informações":      20,
		"e-SIC":                      20,
		"Solicitação via LAI":        20,
		"Acesso à Informação":        20,
		"Reclamação":                 30,
		"Denúncia":                   30,
		"Elogio sobre música":        30,
		"":                           30,
	}
	for in, want := range cases {
		if got := e.PrazoDays(in); got != want {
			t.Fatalf("PrazoDays(%q): want=%d got=%d", in, want, got)
		}
	}
}

func TestPolicyOverrides(t *testing.T) {
	e := New(Policy{DefaultDays: 45, ShortDays: 10, ShortKeywords: []string{"urgente"}})
	if got := e.PrazoDays("Denúncia Urgente"); got != 10 {
		t.Fatalf("custom keyword: want=10 got=%d", got)
	}
	if got := e.PrazoDays("Pedido de Informação"); got != 45 {
		t.Fatalf("custom default: want=45 got=%d", got)
	}
	if p := e.Policy(); p.OnTrackMax != 30 || p.WarningMax != 60 {
		t.Fatalf("thresholds default: got=%+v", p)
	}
}

func TestScenarioInformationRequestDueDate(t *testing.T) {
	e := New(DefaultPolicy())
	rec := &domain.Record{
		ID:              "1",
		CreationDateISO: domain.PtrString("2024-01-01"),
		Payload:         []byte(`{"tipoDeManifestacao":"Pedido de Informação (SIC)"}`),
	}
	if got := e.RecordPrazo(rec); got != 20 {
		t.Fatalf("prazo: want=20 got=%d", got)
	}
	due, ok := e.RecordDueDate(rec)
	if !ok {
		t.Fatalf("RecordDueDate: ok=false")
	}
	if got := due.Format(dates.Layout); got != "2024-01-21" {
		t.Fatalf("due: want=2024-01-21 got=%s", got)
	}
}

func TestDueDateCrossesMonthAndLeapDay(t *testing.T) {
	if got := DueDate(day("2024-02-15"), 30).Format(dates.Layout); got != "2024-03-16" {
		t.Fatalf("DueDate: want=2024-03-16 got=%s", got)
	}
	if got := RemainingDays(day("2024-03-16"), day("2024-03-20")); got != -4 {
		t.Fatalf("RemainingDays: want=-4 got=%d", got)
	}
}

func TestClassifyDaysBoundaries(t *testing.T) {
	e := New(DefaultPolicy())
	cases := map[int]Bucket{
		-1: BucketOverdue,
		0:  BucketOnTrack,
		30: BucketOnTrack,
		31: BucketWarning,
		60: BucketWarning,
		61: BucketOverdue,
	}
	for days, want := range cases {
		if got := e.ClassifyDays(days); got != want {
			t.Fatalf("ClassifyDays(%d): want=%s got=%s", days, want, got)
		}
	}
}

func TestDashboardBucket(t *testing.T) {
	e := New(DefaultPolicy())
	today := day("2024-06-30")

	done := &domain.Record{Status: domain.PtrString("Concluída")}
	if b, ok := e.DashboardBucket(done, today); !ok || b != BucketCompleted {
		t.Fatalf("completed: got=%s ok=%v", b, ok)
	}

	withFigure := &domain.Record{ResolutionDays: domain.PtrInt(45), CreationDateISO: domain.PtrString("2024-06-29")}
	if b, _ := e.DashboardBucket(withFigure, today); b != BucketWarning {
		t.Fatalf("resolution figure wins: want=warning got=%s", b)
	}

	open := &domain.Record{CreationDateISO: domain.PtrString("2024-06-29")}
	if b, _ := e.DashboardBucket(open, today); b != BucketOnTrack {
		t.Fatalf("days open: want=onTrack got=%s", b)
	}

	future := &domain.Record{CreationDateISO: domain.PtrString("2024-07-05")}
	if b, _ := e.DashboardBucket(future, today); b != BucketOverdue {
		t.Fatalf("negative days: want=overdue got=%s", b)
	}

	if _, ok := e.DashboardBucket(&domain.Record{}, today); ok {
		t.Fatalf("undated: want ok=false")
	}
}

func TestScenarioSummary(t *testing.T) {
	e := New(DefaultPolicy())
	today := day("2024-06-30")
	var recs []*domain.Record
	add := func(n int, status string, minDays, span int) {
		for i := 0; i < n; i++ {
			created := today.AddDate(0, 0, -(minDays + i%span))
			rec := &domain.Record{
				ID:              fmt.Sprintf("r%04d", len(recs)),
				CreationDateISO: domain.PtrString(created.Format(dates.Layout)),
			}
			if status != "" {
				rec.Status = domain.PtrString(status)
			}
			recs = append(recs, rec)
		}
	}
	add(400, "Concluída", 0, 365)
	add(200, "Em andamento", 0, 31)
	add(200, "", 31, 30)
	add(200, "Aberta", 61, 300)

	got := e.Summarize(recs, today)
	want := Summary{Completed: 400, OnTrack: 200, Warning: 200, Overdue: 200}
	if got != want {
		t.Fatalf("summary: want=%+v got=%+v", want, got)
	}
	if got.Total() != 1000 {
		t.Fatalf("total: want=1000 got=%d", got.Total())
	}
}

func TestNotificationTrigger(t *testing.T) {
	e := New(DefaultPolicy())
	rec := &domain.Record{
		CreationDateISO:   domain.PtrString("2024-01-01"),
		ManifestationType: domain.PtrString("Reclamação"),
	}
	// due 2024-01-31
	cases := map[string]Trigger{
		"2024-01-16": Trigger15DaysBefore,
		"2024-01-17": TriggerNone,
		"2024-01-31": TriggerDueToday,
		"2024-02-01": TriggerNone,
		"2024-03-31": Trigger60DaysOverdue,
		"2024-04-01": TriggerNone,
	}
	for today, want := range cases {
		if got := e.NotificationTrigger(rec, day(today)); got != want {
			t.Fatalf("NotificationTrigger(%s): want=%q got=%q", today, want, got)
		}
	}

	closed := *rec
	closed.Status = domain.PtrString("Encerrada")
	if got := e.NotificationTrigger(&closed, day("2024-01-31")); got != TriggerNone {
		t.Fatalf("completed record: want none got=%q", got)
	}
	if got := e.NotificationTrigger(&domain.Record{}, day("2024-01-31")); got != TriggerNone {
		t.Fatalf("undated record: want none got=%q", got)
	}
}

func TestUpcoming(t *testing.T) {
	e := New(DefaultPolicy())
	today := day("2024-01-20")
	recs := []*domain.Record{
		// due 01-31, 11 days left
		{ID: "a", Protocol: domain.PtrString("P-3"), CreationDateISO: domain.PtrString("2024-01-01")},
		// due 12-31, 20 days overdue
		{ID: "b", Protocol: domain.PtrString("P-1"), CreationDateISO: domain.PtrString("2023-12-01")},
		// due 02-14, outside the window
		{ID: "c", CreationDateISO: domain.PtrString("2024-01-15")},
		// short prazo, due 01-21
		{ID: "d", Protocol: domain.PtrString("P-2"), CreationDateISO: domain.PtrString("2024-01-01"), ManifestationType: domain.PtrString("SIC")},
		{ID: "e", Status: domain.PtrString("Concluída"), CreationDateISO: domain.PtrString("2024-01-01")},
	}
	got := e.Upcoming(recs, today, 15)
	if len(got) != 3 {
		t.Fatalf("upcoming: want=3 got=%d (%+v)", len(got), got)
	}
	order := []string{got[0].Identifier, got[1].Identifier, got[2].Identifier}
	if fmt.Sprint(order) != "[P-1 P-2 P-3]" {
		t.Fatalf("order: want=[P-1 P-2 P-3] got=%v", order)
	}
	if !got[0].Overdue || got[0].RemainingDays != -20 {
		t.Fatalf("overdue entry: got=%+v", got[0])
	}
	if got[1].PrazoDays != 20 || got[1].DueDate != "2024-01-21" {
		t.Fatalf("short prazo entry: got=%+v", got[1])
	}
}
