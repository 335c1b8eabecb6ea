package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/ouvidoriag/ogdash2/internal/data/repos/testutil"
	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/platform/dbctx"
)

func TestNotificationRepoAppendDedup(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewNotificationRepo(db, testutil.Logger(t))

	t0 := time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC)
	row := func(status string, at time.Time) *domain.NotificationRecord {
		return &domain.NotificationRecord{Identifier: "P-1", Kind: "15_days_before", Status: status, SentAt: at}
	}

	for i := 0; i < 2; i++ {
		inserted, err := repo.Append(dbc, row(domain.NotificationStatusError, t0.Add(time.Duration(i)*time.Minute)))
		if err != nil || !inserted {
			t.Fatalf("error row %d: inserted=%v err=%v", i, inserted, err)
		}
	}
	if sent, err := repo.ExistsSent(dbc, "P-1", "15_days_before"); err != nil || sent {
		t.Fatalf("ExistsSent before send: want=false got=%v err=%v", sent, err)
	}

	inserted, err := repo.Append(dbc, row(domain.NotificationStatusSent, t0.Add(time.Hour)))
	if err != nil || !inserted {
		t.Fatalf("first sent: inserted=%v err=%v", inserted, err)
	}
	inserted, err = repo.Append(dbc, row(domain.NotificationStatusSent, t0.Add(2*time.Hour)))
	if err != nil {
		t.Fatalf("second sent: %v", err)
	}
	if inserted {
		t.Fatalf("second sent row for the same pair must be dropped")
	}

	if sent, err := repo.ExistsSent(dbc, "P-1", "15_days_before"); err != nil || !sent {
		t.Fatalf("ExistsSent: want=true got=%v err=%v", sent, err)
	}
	if sent, _ := repo.ExistsSent(dbc, "P-1", "due_today"); sent {
		t.Fatalf("ExistsSent other kind: want=false")
	}

	// a different kind for the same identifier is independent
	if inserted, err := repo.Append(dbc, &domain.NotificationRecord{Identifier: "P-1", Kind: "due_today", Status: domain.NotificationStatusSent, SentAt: t0.Add(3 * time.Hour)}); err != nil || !inserted {
		t.Fatalf("other kind: inserted=%v err=%v", inserted, err)
	}

	rows, err := repo.ListByIdentifier(dbc, "P-1")
	if err != nil {
		t.Fatalf("ListByIdentifier: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("history: want=4 got=%d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].SentAt.Before(rows[i-1].SentAt) {
			t.Fatalf("history not ordered by sent_at")
		}
	}
	if rows[0].Status != domain.NotificationStatusError || rows[2].Status != domain.NotificationStatusSent {
		t.Fatalf("history order: got=%v,%v", rows[0].Status, rows[2].Status)
	}
}

func TestNotificationRepoListEmptyIdentifier(t *testing.T) {
	db := testutil.DB(t)
	repo := NewNotificationRepo(db, testutil.Logger(t))
	rows, err := repo.ListByIdentifier(dbctx.Context{Ctx: context.Background()}, "")
	if err != nil || len(rows) != 0 {
		t.Fatalf("empty identifier: rows=%d err=%v", len(rows), err)
	}
}
