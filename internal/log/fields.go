package log

import (
	"github.com/shopspring/decimal"
)

// Field names for structured logging
const (
	FieldComponent        = "component"
	FieldRequestID        = "request_id"
	FieldClientIP         = "client_ip"
	FieldMethod           = "method"
	FieldPath             = "path"
	FieldQuery            = "query"
	FieldStatusCode       = "status_code"
	FieldDuration         = "duration_ms"
	FieldUserAgent        = "user_agent"
	FieldSuccess          = "success"
	FieldError            = "error"
	FieldOperation        = "operation"
	FieldLedgerKey        = "ledger_key"
	FieldDate             = "date"
	FieldTransactionIndex = "transaction_index"
	FieldLineIndex        = "line_index"
	FieldPaymentMethod    = "payment_method"
	FieldAmount           = "amount"
	FieldCurrency         = "currency"
	FieldCategory         = "category"
	FieldLabel            = "label"
	FieldQuantity         = "quantity"
	FieldVersion          = "version"
	FieldMessageID        = "message_id"
	FieldFile             = "file"
)

// Component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentTerminal  = "terminal"
	ComponentLedger    = "ledger"
	ComponentHistory   = "history"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentClosing   = "closing"
	ComponentScreens   = "screens"
)

// Operation names
const (
	OpCommit   = "commit"
	OpEdit     = "edit"
	OpDelete   = "delete"
	OpLoad     = "load"
	OpPersist  = "persist"
	OpList     = "list"
	OpExport   = "export"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields is a builder for structured log fields.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text, if any.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSale adds the fields describing a committed transaction.
func (f LogFields) WithSale(method string, amount decimal.Decimal, currency string, lines int) LogFields {
	f[FieldPaymentMethod] = method
	f[FieldAmount] = amount.String()
	f[FieldCurrency] = currency
	f[FieldQuantity] = lines
	return f
}

// WithLine adds the fields describing a cart or ledger line.
func (f LogFields) WithLine(category, label string, amount decimal.Decimal, quantity int) LogFields {
	f[FieldCategory] = category
	f[FieldLabel] = label
	f[FieldAmount] = amount.String()
	f[FieldQuantity] = quantity
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts the fields to slog key/value pairs.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
