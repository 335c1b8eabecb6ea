package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CacheEntry is one durable cache row. Keys are versioned strings such as
// "groupBy:channel:all:v3".
type CacheEntry struct {
	Key        string         `gorm:"column:key;primaryKey" json:"key"`
	Value      datatypes.JSON `gorm:"column:value;not null" json:"value"`
	ComputedAt time.Time      `gorm:"column:computed_at;not null;index" json:"computed_at"`
	TTLSeconds int            `gorm:"column:ttl_seconds;not null" json:"ttl_seconds"`
}

func (CacheEntry) TableName() string { return "cache_entry" }

// Fresh reports whether the entry is still valid at now.
func (e *CacheEntry) Fresh(now time.Time) bool {
	if e == nil || e.TTLSeconds <= 0 {
		return false
	}
	return now.Before(e.ComputedAt.Add(time.Duration(e.TTLSeconds) * time.Second))
}
