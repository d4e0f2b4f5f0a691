package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldDate        = "date"
	FieldYearMonth   = "year_month"
	FieldCustomerID  = "customer_id"
	FieldCustomers   = "customers"
	FieldDays        = "days"
	FieldVolume      = "volume"
	FieldRevenue     = "revenue"
	FieldStorageKey  = "storage_key"
	FieldImportToken = "import_token"
	FieldBackupFile  = "backup_file"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentLedger      = "ledger"
	ComponentRegistry    = "registry"
	ComponentStorage     = "storage"
	ComponentPersistence = "persistence"
	ComponentBackup      = "backup"
	ComponentReport      = "report"
	ComponentCLI         = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpSaveDay  = "save_day"
	OpSettings = "save_settings"
	OpExport   = "export"
	OpImport   = "import"
	OpClear    = "clear"
	OpLoad     = "load"
	OpBackup   = "backup"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeStorage       = "storage_error"
	ErrorTypeCorruption    = "corruption_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithDay adds the fields describing a saved ledger day
func (f LogFields) WithDay(date string, customers int, volume float64) LogFields {
	f[FieldDate] = date
	f[FieldCustomers] = customers
	f[FieldVolume] = volume
	return f
}

// WithCustomer adds customer id field
func (f LogFields) WithCustomer(id string) LogFields {
	f[FieldCustomerID] = id
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
