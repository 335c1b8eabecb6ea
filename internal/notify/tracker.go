// Package notify dispatches deadline notifications at most once per
// (identifier, kind) pair, as observed through an append-only log.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/ouvidoriag/ogdash2/internal/data/repos"
	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/platform/dbctx"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

// Metadata is stored alongside a dispatch attempt.
type Metadata struct {
	ErrorMessage string
	Recipient    string
	MessageID    string
	Extra        map[string]any
}

// Tracker answers "was this already sent?" and appends attempts. It never
// updates or deletes a row. Two callers racing on one pair may both see
// false from AlreadySent; the second sent row is then dropped by the store.
type Tracker struct {
	repo repos.NotificationRepo
	log  *logger.Logger
	now  func() time.Time
}

func NewTracker(repo repos.NotificationRepo, baseLog *logger.Logger) *Tracker {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Tracker{repo: repo, log: baseLog.With("service", "NotificationTracker"), now: time.Now}
}

// AlreadySent is true only when a sent row exists for the pair, compared after
// trimming as Record stores it. Error rows never block a retry.
func (t *Tracker) AlreadySent(ctx context.Context, identifier, kind string) (bool, error) {
	identifier = strings.TrimSpace(identifier)
	kind = strings.TrimSpace(kind)
	if identifier == "" || kind == "" {
		return false, fmt.Errorf("notification lookup needs identifier and kind")
	}
	ok, err := t.repo.ExistsSent(dbctx.Context{Ctx: ctx}, identifier, kind)
	if err != nil {
		return false, fmt.Errorf("check sent notification %s/%s: %w", identifier, kind, err)
	}
	return ok, nil
}

// Record appends one attempt. status must be "sent" or "error".
func (t *Tracker) Record(ctx context.Context, identifier, kind, status string, meta Metadata) error {
	identifier = strings.TrimSpace(identifier)
	kind = strings.TrimSpace(kind)
	if identifier == "" || kind == "" {
		return fmt.Errorf("notification record needs identifier and kind")
	}
	if status != domain.NotificationStatusSent && status != domain.NotificationStatusError {
		return fmt.Errorf("unknown notification status %q", status)
	}
	row := &domain.NotificationRecord{
		Identifier:   identifier,
		Kind:         kind,
		Status:       status,
		SentAt:       t.now().UTC(),
		ErrorMessage: meta.ErrorMessage,
		Recipient:    meta.Recipient,
		MessageID:    meta.MessageID,
	}
	if len(meta.Extra) > 0 {
		raw, err := json.Marshal(meta.Extra)
		if err != nil {
			return fmt.Errorf("encode notification metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	inserted, err := t.repo.Append(dbctx.Context{Ctx: ctx}, row)
	if err != nil {
		return fmt.Errorf("append notification %s/%s: %w", identifier, kind, err)
	}
	if !inserted {
		t.log.Info("sent notification already recorded", "identifier", identifier, "kind", kind)
	}
	return nil
}

// History lists every attempt for one identifier, oldest first.
func (t *Tracker) History(ctx context.Context, identifier string) ([]*domain.NotificationRecord, error) {
	rows, err := t.repo.ListByIdentifier(dbctx.Context{Ctx: ctx}, strings.TrimSpace(identifier))
	if err != nil {
		return nil, store.Unavailable("list notifications", err)
	}
	return rows, nil
}
