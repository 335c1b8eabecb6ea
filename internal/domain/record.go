package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Record is one ombudsman case. Normalized columns are extracted at ingestion
// and may be nil even when Payload still carries the value.
type Record struct {
	ID                string         `gorm:"column:id;primaryKey" json:"id"`
	Protocol          *string        `gorm:"column:protocol;index" json:"protocol,omitempty"`
	Status            *string        `gorm:"column:status;index" json:"status,omitempty"`
	Theme             *string        `gorm:"column:theme;index" json:"theme,omitempty"`
	Subject           *string        `gorm:"column:subject;index" json:"subject,omitempty"`
	Organ             *string        `gorm:"column:organ;index" json:"organ,omitempty"`
	Channel           *string        `gorm:"column:channel;index" json:"channel,omitempty"`
	Priority          *string        `gorm:"column:priority" json:"priority,omitempty"`
	RegisteringUnit   *string        `gorm:"column:registering_unit;index" json:"registering_unit,omitempty"`
	Responsible       *string        `gorm:"column:responsible;index" json:"responsible,omitempty"`
	ManifestationType *string        `gorm:"column:manifestation_type;index" json:"manifestation_type,omitempty"`
	CreationDate      *string        `gorm:"column:creation_date" json:"creation_date,omitempty"`
	CreationDateISO   *string        `gorm:"column:creation_date_iso;index" json:"creation_date_iso,omitempty"`
	CompletionDateISO *string        `gorm:"column:completion_date_iso" json:"completion_date_iso,omitempty"`
	ResolutionDays    *int           `gorm:"column:resolution_days" json:"resolution_days,omitempty"`
	Payload           datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	payload map[string]any
	decoded bool
}

func (Record) TableName() string { return "record" }

// Column returns the trimmed value of a normalized column. ok is false when the
// column is nil, blank, or not a known column.
func (r *Record) Column(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	var p *string
	switch name {
	case ColumnID:
		p = &r.ID
	case ColumnProtocol:
		p = r.Protocol
	case ColumnStatus:
		p = r.Status
	case ColumnTheme:
		p = r.Theme
	case ColumnSubject:
		p = r.Subject
	case ColumnOrgan:
		p = r.Organ
	case ColumnChannel:
		p = r.Channel
	case ColumnPriority:
		p = r.Priority
	case ColumnRegisteringUnit:
		p = r.RegisteringUnit
	case ColumnResponsible:
		p = r.Responsible
	case ColumnManifestationType:
		p = r.ManifestationType
	case ColumnCreationDate:
		p = r.CreationDate
	case ColumnCreationDateISO:
		p = r.CreationDateISO
	case ColumnCompletionDateISO:
		p = r.CompletionDateISO
	case ColumnResolutionDays:
		if r.ResolutionDays == nil {
			return "", false
		}
		return strconv.Itoa(*r.ResolutionDays), true
	}
	if p == nil {
		return "", false
	}
	v := strings.TrimSpace(*p)
	return v, v != ""
}

// RawColumn returns a normalized text column exactly as stored, without
// trimming. Store-side grouping keys use the raw value.
func (r *Record) RawColumn(name string) *string {
	switch name {
	case ColumnProtocol:
		return r.Protocol
	case ColumnStatus:
		return r.Status
	case ColumnTheme:
		return r.Theme
	case ColumnSubject:
		return r.Subject
	case ColumnOrgan:
		return r.Organ
	case ColumnChannel:
		return r.Channel
	case ColumnPriority:
		return r.Priority
	case ColumnRegisteringUnit:
		return r.RegisteringUnit
	case ColumnResponsible:
		return r.Responsible
	case ColumnManifestationType:
		return r.ManifestationType
	case ColumnCreationDate:
		return r.CreationDate
	case ColumnCreationDateISO:
		return r.CreationDateISO
	case ColumnCompletionDateISO:
		return r.CompletionDateISO
	}
	return nil
}

// PayloadMap decodes Payload once and caches the result on the record. A
// malformed payload decodes to an empty map. Records are owned by a single
// request, so the cache is not synchronized.
func (r *Record) PayloadMap() map[string]any {
	if r == nil {
		return nil
	}
	if r.decoded {
		return r.payload
	}
	r.decoded = true
	r.payload = map[string]any{}
	if len(r.Payload) == 0 {
		return r.payload
	}
	var m map[string]any
	if err := json.Unmarshal(r.Payload, &m); err == nil && m != nil {
		r.payload = m
	}
	return r.payload
}

// Identifier is the stable case identifier used for notifications: the
// protocol number when known, otherwise the record id.
func (r *Record) Identifier() string {
	if v, ok := r.Column(ColumnProtocol); ok {
		return v
	}
	return r.ID
}
