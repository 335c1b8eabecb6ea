package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/platform/dbctx"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

type NotificationRepo interface {
	// Append inserts a new row. A second sent row for the same pair is
	// silently dropped by the partial unique index; inserted reports whether
	// this call's row was stored.
	Append(dbc dbctx.Context, row *domain.NotificationRecord) (inserted bool, err error)
	ExistsSent(dbc dbctx.Context, identifier, kind string) (bool, error)
	ListByIdentifier(dbc dbctx.Context, identifier string) ([]*domain.NotificationRecord, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{
		db:  db,
		log: baseLog.With("repo", "NotificationRepo"),
	}
}

func (r *notificationRepo) Append(dbc dbctx.Context, row *domain.NotificationRecord) (bool, error) {
	if row == nil {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.SentAt.IsZero() {
		row.SentAt = time.Now().UTC()
	}
	res := dbc.Handle(r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Warn("duplicate sent notification dropped", "identifier", row.Identifier, "kind", row.Kind)
		return false, nil
	}
	return true, nil
}

func (r *notificationRepo) ExistsSent(dbc dbctx.Context, identifier, kind string) (bool, error) {
	var n int64
	err := dbc.Handle(r.db).
		Model(&domain.NotificationRecord{}).
		Where("identifier = ? AND kind = ? AND status = ?", identifier, kind, domain.NotificationStatusSent).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *notificationRepo) ListByIdentifier(dbc dbctx.Context, identifier string) ([]*domain.NotificationRecord, error) {
	var out []*domain.NotificationRecord
	if identifier == "" {
		return out, nil
	}
	if err := dbc.Handle(r.db).
		Where("identifier = ?", identifier).
		Order("sent_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
