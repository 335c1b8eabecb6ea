package app

import (
	"gorm.io/gorm"

	"github.com/ouvidoriag/ogdash2/internal/data/repos"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

type Repos struct {
	Records       repos.RecordRepo
	CacheEntries  repos.CacheEntryRepo
	Notifications repos.NotificationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Records:       repos.NewRecordRepo(db, log),
		CacheEntries:  repos.NewCacheEntryRepo(db, log),
		Notifications: repos.NewNotificationRepo(db, log),
	}
}
