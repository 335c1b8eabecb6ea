// Package deadline computes regulatory due dates (prazo) and classifies
// records on two independent scales: dashboard backlog buckets and discrete
// notification triggers.
package deadline

import (
	"strings"
	"time"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/normalization"
	"github.com/ouvidoriag/ogdash2/internal/reporting/dates"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
)

type Bucket string

const (
	BucketCompleted Bucket = "completed"
	BucketOnTrack   Bucket = "onTrack"
	BucketWarning   Bucket = "warning"
	BucketOverdue   Bucket = "overdue"
)

type Trigger string

const (
	TriggerNone          Trigger = "none"
	Trigger15DaysBefore  Trigger = "15_days_before"
	TriggerDueToday      Trigger = "due_today"
	Trigger60DaysOverdue Trigger = "60_days_overdue"
)

// Notification thresholds are remaining-day values matched exactly.
var triggerOffsets = map[int]Trigger{
	15:  Trigger15DaysBefore,
	0:   TriggerDueToday,
	-60: Trigger60DaysOverdue,
}

// Policy configures prazo lengths and the dashboard thresholds. Notification
// offsets are not part of it.
type Policy struct {
	DefaultDays int `yaml:"default_days"`
	ShortDays   int `yaml:"short_days"`
	// ShortKeywords select the short prazo. Single words of up to four
	// letters ("sic", "lai") must match a whole word; longer keywords match
	// as substrings of the accent-folded type.
	ShortKeywords []string `yaml:"short_keywords"`
	OnTrackMax    int      `yaml:"on_track_max"`
	WarningMax    int      `yaml:"warning_max"`
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultDays:   30,
		ShortDays:     20,
		ShortKeywords: []string{"informacao", "informacoes", "sic", "e-sic", "esic", "lai", "acesso a informacao"},
		OnTrackMax:    30,
		WarningMax:    60,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.DefaultDays <= 0 {
		p.DefaultDays = d.DefaultDays
	}
	if p.ShortDays <= 0 {
		p.ShortDays = d.ShortDays
	}
	if len(p.ShortKeywords) == 0 {
		p.ShortKeywords = d.ShortKeywords
	}
	if p.OnTrackMax <= 0 {
		p.OnTrackMax = d.OnTrackMax
	}
	if p.WarningMax <= p.OnTrackMax {
		p.WarningMax = p.OnTrackMax + (d.WarningMax - d.OnTrackMax)
	}
	return p
}

var manifestationType = fields.Lookup(fields.ManifestationType)

// Engine is stateless apart from its policy and safe for concurrent use.
type Engine struct {
	policy  Policy
	words   map[string]bool
	phrases []string
}

func New(policy Policy) *Engine {
	policy = policy.withDefaults()
	e := &Engine{policy: policy, words: map[string]bool{}}
	for _, kw := range policy.ShortKeywords {
		norm := normalization.Text(kw)
		if norm == "" {
			continue
		}
		if !strings.Contains(norm, " ") && len(norm) <= 4 {
			e.words[strings.ReplaceAll(norm, "-", "")] = true
			continue
		}
		e.phrases = append(e.phrases, norm)
	}
	return e
}

func (e *Engine) Policy() Policy { return e.policy }

// PrazoDays returns the short prazo for information-request types and the
// default prazo otherwise.
func (e *Engine) PrazoDays(manifestationType string) int {
	text := normalization.Text(manifestationType)
	if text == "" {
		return e.policy.DefaultDays
	}
	for _, p := range e.phrases {
		if strings.Contains(text, p) {
			return e.policy.ShortDays
		}
	}
	for _, w := range normalization.Words(text) {
		if e.words[strings.ReplaceAll(w, "-", "")] {
			return e.policy.ShortDays
		}
	}
	return e.policy.DefaultDays
}

// DueDate adds prazoDays calendar days to creation. No business-day skipping.
func DueDate(creation time.Time, prazoDays int) time.Time {
	return dates.Civil(creation).AddDate(0, 0, prazoDays)
}

// RemainingDays is negative once due has passed.
func RemainingDays(due, today time.Time) int {
	return dates.DaysBetween(today, due)
}

// RecordPrazo returns the prazo for rec's manifestation type.
func (e *Engine) RecordPrazo(rec *domain.Record) int {
	mt, _ := fields.Read(rec, manifestationType)
	return e.PrazoDays(mt)
}

// RecordDueDate is DueDate over rec's creation date and prazo. ok=false when
// the creation date cannot be determined.
func (e *Engine) RecordDueDate(rec *domain.Record) (time.Time, bool) {
	created, ok := dates.CreationTime(rec)
	if !ok {
		return time.Time{}, false
	}
	return DueDate(created, e.RecordPrazo(rec)), true
}

// ClassifyDays maps an elapsed-day figure to an open-record bucket:
// up to OnTrackMax is onTrack, up to WarningMax is warning, beyond is
// overdue. Negative figures are overdue.
func (e *Engine) ClassifyDays(days int) Bucket {
	switch {
	case days < 0:
		return BucketOverdue
	case days <= e.policy.OnTrackMax:
		return BucketOnTrack
	case days <= e.policy.WarningMax:
		return BucketWarning
	default:
		return BucketOverdue
	}
}

// DashboardBucket classifies rec as of today. Completed records are always
// completed. Open records use their resolution-days figure when one exists
// and otherwise the days elapsed since creation. ok=false means no date was
// computable and the record belongs to no bucket.
func (e *Engine) DashboardBucket(rec *domain.Record, today time.Time) (Bucket, bool) {
	if rec == nil {
		return "", false
	}
	if dates.IsCompleted(rec) {
		return BucketCompleted, true
	}
	if days, ok := dates.ResolutionDays(rec, false); ok {
		return e.ClassifyDays(days), true
	}
	if days, ok := dates.DaysOpen(rec, today); ok {
		return e.ClassifyDays(days), true
	}
	return "", false
}

// NotificationTrigger fires only when the remaining days equal 15, 0 or -60
// exactly. Completed and undated records never trigger.
func (e *Engine) NotificationTrigger(rec *domain.Record, today time.Time) Trigger {
	if rec == nil || dates.IsCompleted(rec) {
		return TriggerNone
	}
	due, ok := e.RecordDueDate(rec)
	if !ok {
		return TriggerNone
	}
	if t, ok := triggerOffsets[RemainingDays(due, today)]; ok {
		return t
	}
	return TriggerNone
}
