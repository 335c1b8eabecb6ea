package deadline

import (
	"sort"
	"time"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/reporting/dates"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
)

// Summary counts records per dashboard bucket. Excluded counts records with
// no computable date; they are in no bucket.
type Summary struct {
	Completed int `json:"completed"`
	OnTrack   int `json:"onTrack"`
	Warning   int `json:"warning"`
	Overdue   int `json:"overdue"`
	Excluded  int `json:"excluded"`
}

func (s Summary) Total() int { return s.Completed + s.OnTrack + s.Warning + s.Overdue }

func (e *Engine) Summarize(records []*domain.Record, today time.Time) Summary {
	var s Summary
	for _, rec := range records {
		b, ok := e.DashboardBucket(rec, today)
		if !ok {
			s.Excluded++
			continue
		}
		switch b {
		case BucketCompleted:
			s.Completed++
		case BucketOnTrack:
			s.OnTrack++
		case BucketWarning:
			s.Warning++
		case BucketOverdue:
			s.Overdue++
		}
	}
	return s
}

// Due is an open record with its computed deadline.
type Due struct {
	Identifier        string         `json:"identifier"`
	ManifestationType string         `json:"manifestationType,omitempty"`
	CreationDate      string         `json:"creationDate"`
	DueDate           string         `json:"dueDate"`
	PrazoDays         int            `json:"prazoDays"`
	RemainingDays     int            `json:"remainingDays"`
	Overdue           bool           `json:"overdue"`
	Record            *domain.Record `json:"-"`
}

// Describe computes rec's deadline as of today. ok=false for completed or
// undated records.
func (e *Engine) Describe(rec *domain.Record, today time.Time) (Due, bool) {
	if rec == nil || dates.IsCompleted(rec) {
		return Due{}, false
	}
	created, ok := dates.CreationTime(rec)
	if !ok {
		return Due{}, false
	}
	prazo := e.RecordPrazo(rec)
	due := DueDate(created, prazo)
	remaining := RemainingDays(due, today)
	mt, _ := fields.Read(rec, manifestationType)
	return Due{
		Identifier:        rec.Identifier(),
		ManifestationType: mt,
		CreationDate:      created.Format(dates.Layout),
		DueDate:           due.Format(dates.Layout),
		PrazoDays:         prazo,
		RemainingDays:     remaining,
		Overdue:           remaining < 0,
		Record:            rec,
	}, true
}

// Upcoming lists open records due within withinDays of today, overdue ones
// included, sorted by remaining days ascending then identifier.
func (e *Engine) Upcoming(records []*domain.Record, today time.Time, withinDays int) []Due {
	out := []Due{}
	for _, rec := range records {
		d, ok := e.Describe(rec, today)
		if !ok || d.RemainingDays > withinDays {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RemainingDays != out[j].RemainingDays {
			return out[i].RemainingDays < out[j].RemainingDays
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out
}
