package cacheentries

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

// CacheEntryRepo is the SQL side of the report cache: plain get/put on a
// keyed row with no TTL logic of its own.
type CacheEntryRepo interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Put(ctx context.Context, entry *domain.CacheEntry) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

type cacheEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return &cacheEntryRepo{
		db:  db,
		log: baseLog.With("repo", "CacheEntryRepo"),
	}
}

func (r *cacheEntryRepo) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var row domain.CacheEntry
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Put upserts the whole row in one statement; readers never see a mix of
// old and new columns.
func (r *cacheEntryRepo) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil || entry.Key == "" {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "computed_at", "ttl_seconds"}),
		}).
		Create(entry).Error
}

// DeleteByPrefix drops every entry whose key starts with prefix, e.g. all
// versions of one report name.
func (r *cacheEntryRepo) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("key LIKE ?", prefix+"%").
		Delete(&domain.CacheEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	r.log.Info("cache entries purged", "prefix", prefix, "rows", res.RowsAffected)
	return res.RowsAffected, nil
}
