package domain

// Normalized column names on the record table. These are the only columns
// the reporting core will ever push into a store-side predicate or group-by.
const (
	ColumnID                = "id"
	ColumnProtocol          = "protocol"
	ColumnStatus            = "status"
	ColumnTheme             = "theme"
	ColumnSubject           = "subject"
	ColumnOrgan             = "organ"
	ColumnChannel           = "channel"
	ColumnPriority          = "priority"
	ColumnRegisteringUnit   = "registering_unit"
	ColumnResponsible       = "responsible"
	ColumnManifestationType = "manifestation_type"
	ColumnCreationDate      = "creation_date"
	ColumnCreationDateISO   = "creation_date_iso"
	ColumnCompletionDateISO = "completion_date_iso"
	ColumnResolutionDays    = "resolution_days"
	ColumnPayload           = "payload"
)

var textColumns = map[string]bool{
	ColumnProtocol:          true,
	ColumnStatus:            true,
	ColumnTheme:             true,
	ColumnSubject:           true,
	ColumnOrgan:             true,
	ColumnChannel:           true,
	ColumnPriority:          true,
	ColumnRegisteringUnit:   true,
	ColumnResponsible:       true,
	ColumnManifestationType: true,
	ColumnCreationDate:      true,
	ColumnCreationDateISO:   true,
	ColumnCompletionDateISO: true,
}

// IsTextColumn reports whether name is a normalized string column that can be
// filtered and grouped store-side.
func IsTextColumn(name string) bool { return textColumns[name] }

// IsDateColumn reports whether name holds a date string.
func IsDateColumn(name string) bool {
	return name == ColumnCreationDate || name == ColumnCreationDateISO || name == ColumnCompletionDateISO
}

func PtrString(v string) *string { return &v }
func PtrInt(v int) *int          { return &v }
