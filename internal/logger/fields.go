package logger

// Standard field names for structured logging.
const (
	FieldEntity    = "entity"
	FieldKind      = "kind"
	FieldFile      = "file"
	FieldAttribute = "attribute"
	FieldFunction  = "function"
	FieldHook      = "hook"
	FieldRule      = "rule"
	FieldCount     = "count"
	FieldOutput    = "output"
	FieldError     = "error"

	FieldDurationMS = "duration_ms"
)
