package notify

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	s, err := NewScheduler(nil, nil, "every morning", time.UTC)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("invalid schedule: want error")
	}
}

func TestSchedulerStopsWithContext(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s, err := NewScheduler(nil, nil, "", loc)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.spec != DefaultSchedule {
		t.Fatalf("default schedule: got=%q", s.spec)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries: want=1 got=%d", len(entries))
	}
	if next := entries[0].Next.In(loc); next.Hour() != 8 || next.Minute() != 0 {
		t.Fatalf("next run: got=%v", next)
	}
	cancel()
}
