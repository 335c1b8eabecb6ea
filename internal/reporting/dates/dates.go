// Package dates extracts canonical creation and completion dates from
// records whose dates may sit in typed columns, free text, or payload keys.
package dates

import (
	"math"
	"strings"
	"time"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/normalization"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
)

var (
	creationVariants   = fields.Lookup(fields.CreationDate).Variants
	completionVariants = fields.Lookup(fields.CompletionDate).Variants
	statusResolution   = fields.Lookup(fields.Status)
)

// completedMarkers are matched as substrings of the accent-folded status.
var completedMarkers = []string{"concluid", "encerrad", "finalizad", "resolvid", "arquivad"}

// CreationTime resolves the creation timestamp: ISO column, then the free-text
// column, then payload variants. A source that fails to parse falls through to
// the next one.
func CreationTime(rec *domain.Record) (time.Time, bool) {
	if rec == nil {
		return time.Time{}, false
	}
	if v, ok := rec.Column(domain.ColumnCreationDateISO); ok {
		if t, err := Parse(v); err == nil {
			return t, true
		}
	}
	if v, ok := rec.Column(domain.ColumnCreationDate); ok {
		if t, err := Parse(v); err == nil {
			return t, true
		}
	}
	return payloadTime(rec, creationVariants)
}

// CompletionTime resolves the completion timestamp: ISO column, then payload
// variants.
func CompletionTime(rec *domain.Record) (time.Time, bool) {
	if rec == nil {
		return time.Time{}, false
	}
	if v, ok := rec.Column(domain.ColumnCompletionDateISO); ok {
		if t, err := Parse(v); err == nil {
			return t, true
		}
	}
	return payloadTime(rec, completionVariants)
}

func payloadTime(rec *domain.Record, variants []string) (time.Time, bool) {
	payload := rec.PayloadMap()
	for _, key := range variants {
		v, ok := fields.ReadPayload(payload, []string{key})
		if !ok {
			continue
		}
		if t, err := Parse(v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreationDate returns the creation date as YYYY-MM-DD, or ok=false.
func CreationDate(rec *domain.Record) (string, bool) {
	t, ok := CreationTime(rec)
	if !ok {
		return "", false
	}
	return t.Format(Layout), true
}

// CompletionDate returns the completion date as YYYY-MM-DD, or ok=false.
func CompletionDate(rec *domain.Record) (string, bool) {
	t, ok := CompletionTime(rec)
	if !ok {
		return "", false
	}
	return t.Format(Layout), true
}

// IsCompleted reports whether the record's status reads as closed. An empty
// or unrecognized status is open.
func IsCompleted(rec *domain.Record) bool {
	status, ok := fields.Read(rec, statusResolution)
	if !ok {
		return false
	}
	return StatusIsCompleted(status)
}

func StatusIsCompleted(status string) bool {
	s := normalization.Text(status)
	if s == "" {
		return false
	}
	for _, m := range completedMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// ResolutionDays prefers the explicit resolution-days column when it is set
// and (includeZero or > 0); otherwise it floors the creation-to-completion
// span to whole days. ok=false means the figure cannot be computed.
func ResolutionDays(rec *domain.Record, includeZero bool) (int, bool) {
	if rec == nil {
		return 0, false
	}
	if rec.ResolutionDays != nil {
		if v := *rec.ResolutionDays; includeZero || v > 0 {
			return v, true
		}
	}
	created, ok := CreationTime(rec)
	if !ok {
		return 0, false
	}
	completed, ok := CompletionTime(rec)
	if !ok {
		return 0, false
	}
	return int(math.Floor(completed.Sub(created).Hours() / 24)), true
}

// DaysOpen counts calendar days from creation to today.
func DaysOpen(rec *domain.Record, today time.Time) (int, bool) {
	created, ok := CreationTime(rec)
	if !ok {
		return 0, false
	}
	return DaysBetween(created, today), true
}

// FieldDate reads a date-valued logical field through the same chain as
// CreationDate and CompletionDate. Other fields report ok=false.
func FieldDate(rec *domain.Record, f fields.Field) (string, bool) {
	switch f {
	case fields.CreationDate:
		return CreationDate(rec)
	case fields.CompletionDate:
		return CompletionDate(rec)
	default:
		return "", false
	}
}
