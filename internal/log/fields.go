package log

import (
	"errors"
	"sort"

	"patdash/internal/source"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldSource     = "source"
	FieldProfile    = "profile"
	FieldRows       = "rows"
	FieldRecords    = "records"
	FieldTemplate   = "template"
)

// Components of the dashboard.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDashboard = "dashboard"
	ComponentSource    = "source"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentTemplate  = "template"
	ComponentCLI       = "cli"
)

// Operations
const (
	OpFetch    = "fetch"
	OpExtract  = "extract"
	OpRefresh  = "refresh"
	OpRender   = "render"
	OpEncode   = "encode"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Error categories
const (
	ErrorTypeNetwork       = "network_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeTemplate      = "template_error"
	ErrorTypeInternal      = "internal_error"
)

// Fields is a builder for structured log attributes.
type Fields map[string]any

// NewFields creates an empty builder.
func NewFields() Fields {
	return make(Fields)
}

// WithComponent adds component field
func (f Fields) WithComponent(component string) Fields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f Fields) WithRequestID(requestID string) Fields {
	f[FieldRequestID] = requestID
	return f
}

// WithOperation adds operation field
func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error text and its category. Fetch failures are
// network errors, anything else is internal.
func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	f[FieldError] = err.Error()
	var fe *source.FetchError
	if errors.As(err, &fe) {
		f[FieldErrorType] = ErrorTypeNetwork
		f[FieldSource] = fe.Source
	} else {
		f[FieldErrorType] = ErrorTypeInternal
	}
	return f
}

// WithExtraction adds the outcome of one extraction pass.
func (f Fields) WithExtraction(profile string, rows, records int) Fields {
	f[FieldProfile] = profile
	f[FieldRows] = rows
	f[FieldRecords] = records
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f Fields) WithHTTPRequest(method, path, clientIP, userAgent string) Fields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldClientIP] = clientIP
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f Fields) WithHTTPResponse(statusCode int, durationMs int64) Fields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens the fields into slog key/value pairs, keys sorted.
func (f Fields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(f)*2)
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
