package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	NotificationStatusSent  = "sent"
	NotificationStatusError = "error"
)

// NotificationRecord is an append-only log of dispatch attempts. The partial
// unique index allows any number of error rows but a single sent row per
// (identifier, kind).
type NotificationRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Identifier   string         `gorm:"column:identifier;not null;index:idx_notification_pair;uniqueIndex:idx_notification_sent,where:status = 'sent'" json:"identifier"`
	Kind         string         `gorm:"column:kind;not null;index:idx_notification_pair;uniqueIndex:idx_notification_sent,where:status = 'sent'" json:"kind"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	SentAt       time.Time      `gorm:"column:sent_at;not null;index" json:"sent_at"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	Recipient    string         `gorm:"column:recipient" json:"recipient,omitempty"`
	MessageID    string         `gorm:"column:message_id" json:"message_id,omitempty"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
}

func (NotificationRecord) TableName() string { return "notification_record" }
