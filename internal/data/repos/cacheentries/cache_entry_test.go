package cacheentries

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/ouvidoriag/ogdash2/internal/data/repos/testutil"
	"github.com/ouvidoriag/ogdash2/internal/domain"
)

func TestCacheEntryRepoGetPut(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCacheEntryRepo(db, testutil.Logger(t))

	got, err := repo.Get(ctx, "groupBy:channel:all:v1")
	if err != nil || got != nil {
		t.Fatalf("missing: want=(nil,nil) got=(%v,%v)", got, err)
	}

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Put(ctx, &domain.CacheEntry{Key: "groupBy:channel:all:v1", Value: datatypes.JSON(`[1]`), ComputedAt: t0, TTLSeconds: 60}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	t1 := t0.Add(time.Hour)
	if err := repo.Put(ctx, &domain.CacheEntry{Key: "groupBy:channel:all:v1", Value: datatypes.JSON(`[2]`), ComputedAt: t1, TTLSeconds: 120}); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	got, err = repo.Get(ctx, "groupBy:channel:all:v1")
	if err != nil || got == nil {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if string(got.Value) != `[2]` || got.TTLSeconds != 120 || !got.ComputedAt.Equal(t1) {
		t.Fatalf("overwrite: got=%+v", got)
	}

	var n int64
	if err := db.Model(&domain.CacheEntry{}).Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("rows: want=1 got=%d err=%v", n, err)
	}
}

func TestCacheEntryRepoDeleteByPrefix(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCacheEntryRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	testutil.SeedCacheEntry(t, ctx, db, "groupBy:channel:all:v1", `[]`, now, time.Minute)
	testutil.SeedCacheEntry(t, ctx, db, "groupBy:organ:all:v1", `[]`, now, time.Minute)
	testutil.SeedCacheEntry(t, ctx, db, "sla:all:v1", `{}`, now, time.Minute)

	n, err := repo.DeleteByPrefix(ctx, "groupBy:")
	if err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted: want=2 got=%d", n)
	}
	if got, _ := repo.Get(ctx, "sla:all:v1"); got == nil {
		t.Fatalf("unrelated key was deleted")
	}
	if n, _ := repo.DeleteByPrefix(ctx, ""); n != 0 {
		t.Fatalf("empty prefix must delete nothing, got=%d", n)
	}
}
