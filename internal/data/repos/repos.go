package repos

import (
	"gorm.io/gorm"

	"github.com/ouvidoriag/ogdash2/internal/data/repos/cacheentries"
	"github.com/ouvidoriag/ogdash2/internal/data/repos/notifications"
	"github.com/ouvidoriag/ogdash2/internal/data/repos/records"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

type RecordRepo = records.RecordRepo
type CacheEntryRepo = cacheentries.CacheEntryRepo
type NotificationRepo = notifications.NotificationRepo

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return records.NewRecordRepo(db, baseLog)
}

func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return cacheentries.NewCacheEntryRepo(db, baseLog)
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return notifications.NewNotificationRepo(db, baseLog)
}
