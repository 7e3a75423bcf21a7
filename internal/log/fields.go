package log

import (
	"maps"
	"slices"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldTransactionID = "transaction_id"
	FieldType          = "type"
	FieldCategory      = "category"
	FieldAmountCents   = "amount_cents"
	FieldDate          = "date"
	FieldCacheKey      = "cache_key"
	FieldEpoch         = "epoch"
	FieldSessionID     = "session_id"
)

// Components name the parts of bilancio that log.
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentTransactions = "transactions"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentCache        = "cache"
	ComponentSecurity     = "security"
	ComponentRateLimit    = "rate_limit"
	ComponentBackend      = "backend"
)

// Operations name what a record was about.
const (
	OpCreate     = "create"
	OpDelete     = "delete"
	OpQuery      = "query"
	OpAppend     = "append"
	OpSync       = "sync"
	OpInvalidate = "invalidate"
	OpParse      = "parse"
	OpShutdown   = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
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

// WithTransaction adds transaction-related fields. Empty values are skipped.
func (f LogFields) WithTransaction(id, typ, category string, amountCents int64, date string) LogFields {
	if id != "" {
		f[FieldTransactionID] = id
	}
	if typ != "" {
		f[FieldType] = typ
	}
	if category != "" {
		f[FieldCategory] = category
	}
	if amountCents != 0 {
		f[FieldAmountCents] = amountCents
	}
	if date != "" {
		f[FieldDate] = date
	}
	return f
}

// WithHTTPRequest adds HTTP request fields. Empty query, agent and referer
// are skipped.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	for k, v := range map[string]string{FieldQuery: query, FieldUserAgent: userAgent, FieldReferer: referer} {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to slog arguments ordered by key.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		slice = append(slice, k, f[k])
	}
	return slice
}
