package log

import "spesefx/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldExpenseID   = "expense_id"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldCurrency    = "currency"
	FieldDisplayCurr = "display_currency"
	FieldRate        = "rate"
	FieldConvFailed  = "conversion_failed"
	FieldRecordCount = "records"
	FieldGeneration  = "generation"
	FieldSubscribers = "subscribers"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentExpense = "expense"
	ComponentRates   = "rates"
	ComponentCache   = "cache"
	ComponentBus     = "bus"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpList     = "list"
	OpRefresh  = "refresh"
	OpResolve  = "resolve"
	OpPublish  = "publish"
	OpSync     = "sync"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
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

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCandidate adds the fields of a submitted expense
func (f LogFields) WithCandidate(c core.CandidateExpense) LogFields {
	f[FieldAmount] = c.Amount.String()
	f[FieldCategory] = string(c.Category)
	f[FieldDate] = c.Date.String()
	f[FieldCurrency] = c.CurrencyCode
	return f
}

// WithRecord adds the fields of a normalized expense
func (f LogFields) WithRecord(e core.NormalizedExpense) LogFields {
	f[FieldExpenseID] = e.ID
	f[FieldAmount] = e.Amount.String()
	f[FieldCategory] = string(e.Category)
	f[FieldDate] = e.Date.String()
	f[FieldCurrency] = e.OriginalCurrencyCode
	f[FieldDisplayCurr] = e.DisplayCurrencyCode
	f[FieldRate] = e.ConversionRateApplied.String()
	f[FieldConvFailed] = e.ConversionFailed
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
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
