package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ouvidoriag/ogdash2/internal/domain"
)

// RecordFields is the subset of record columns fixtures usually care about.
// Empty strings are stored as NULL.
type RecordFields struct {
	Protocol string
	Status   string
	Theme    string
	Subject  string
	Organ    string
	Channel  string
	Unit     string
	Created  string
	Payload  string
}

func SeedRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, f RecordFields) *domain.Record {
	tb.Helper()
	r := &domain.Record{
		ID:              uuid.NewString(),
		Protocol:        nullable(f.Protocol),
		Status:          nullable(f.Status),
		Theme:           nullable(f.Theme),
		Subject:         nullable(f.Subject),
		Organ:           nullable(f.Organ),
		Channel:         nullable(f.Channel),
		RegisteringUnit: nullable(f.Unit),
		CreationDateISO: nullable(f.Created),
	}
	if f.Payload != "" {
		r.Payload = datatypes.JSON([]byte(f.Payload))
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed record: %v", err)
	}
	return r
}

func SeedCacheEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, key, value string, computedAt time.Time, ttl time.Duration) *domain.CacheEntry {
	tb.Helper()
	e := &domain.CacheEntry{
		Key:        key,
		Value:      datatypes.JSON([]byte(value)),
		ComputedAt: computedAt,
		TTLSeconds: int(ttl / time.Second),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed cache entry: %v", err)
	}
	return e
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
