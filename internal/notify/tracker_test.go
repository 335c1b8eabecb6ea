package notify

import (
	"context"
	"testing"
	"time"

	"github.com/ouvidoriag/ogdash2/internal/data/repos"
	"github.com/ouvidoriag/ogdash2/internal/data/repos/testutil"
	"github.com/ouvidoriag/ogdash2/internal/domain"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewTracker(repos.NewNotificationRepo(db, log), log)
}

func TestTrackerErrorRowsDoNotBlock(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Record(ctx, "P-1", "due_today", domain.NotificationStatusError, Metadata{ErrorMessage: "smtp down"}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	sent, err := tr.AlreadySent(ctx, "P-1", "due_today")
	if err != nil || sent {
		t.Fatalf("AlreadySent after error row: want=false got=%v err=%v", sent, err)
	}

	if err := tr.Record(ctx, "P-1", "due_today", domain.NotificationStatusSent, Metadata{Recipient: "a@b", Extra: map[string]any{"due_date": "2024-01-31"}}); err != nil {
		t.Fatalf("Record sent: %v", err)
	}
	if sent, _ := tr.AlreadySent(ctx, "P-1", "due_today"); !sent {
		t.Fatalf("AlreadySent after sent row: want=true")
	}
	if sent, _ := tr.AlreadySent(ctx, "P-1", "15_days_before"); sent {
		t.Fatalf("AlreadySent other kind: want=false")
	}
}

func TestTrackerDuplicateSentIsNotAnError(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC)
	tick := 0
	tr.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	for i := 0; i < 2; i++ {
		if err := tr.Record(ctx, "P-9", "due_today", domain.NotificationStatusSent, Metadata{}); err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
	}
	rows, err := tr.History(ctx, " P-9 ")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("sent rows: want=1 got=%d", len(rows))
	}
}

func TestTrackerRejectsBadInput(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	if err := tr.Record(ctx, "", "due_today", domain.NotificationStatusSent, Metadata{}); err == nil {
		t.Fatalf("blank identifier: want error")
	}
	if err := tr.Record(ctx, "P-1", " ", domain.NotificationStatusSent, Metadata{}); err == nil {
		t.Fatalf("blank kind: want error")
	}
	if err := tr.Record(ctx, "P-1", "due_today", "queued", Metadata{}); err == nil {
		t.Fatalf("unknown status: want error")
	}
}

func TestTrackerTrimsIdentifierOnLookup(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Record(ctx, " 7f3a-uuid ", " due_today", domain.NotificationStatusSent, Metadata{}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	for _, id := range []string{"7f3a-uuid", " 7f3a-uuid ", "\t7f3a-uuid"} {
		sent, err := tr.AlreadySent(ctx, id, "due_today ")
		if err != nil || !sent {
			t.Fatalf("AlreadySent(%q): want=true got=%v err=%v", id, sent, err)
		}
	}
	if _, err := tr.AlreadySent(ctx, "  ", "due_today"); err == nil {
		t.Fatalf("blank identifier: want error")
	}
}
