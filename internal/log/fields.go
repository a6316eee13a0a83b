package log

import "net/http"

// Field names shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldUserID        = "user_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldMonth         = "month"
	FieldTable         = "table"
	FieldTransactionID = "transaction_id"
	FieldDescription   = "description"
	FieldAmountCents   = "amount_cents"
	FieldTxType        = "tx_type"
	FieldTxStatus      = "tx_status"
	FieldCount         = "count"
	FieldIdempotent    = "idempotent"
)

const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentTransaction = "transaction"
	ComponentBills       = "bills"
	ComponentWorker      = "worker"
	ComponentCache       = "cache"
)

const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpGenerate = "generate"
	OpRender   = "render"
)

const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeAuth       = "auth_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeConflict   = "conflict_error"
	ErrorTypeInternal   = "internal_error"
)

// ErrorTypeForStatus buckets an HTTP status into an error type.
func ErrorTypeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return ErrorTypeAuth
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	}
	if status >= http.StatusInternalServerError {
		return ErrorTypeInternal
	}
	return ErrorTypeValidation
}

// LogFields collects attributes before handing them to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

func (f LogFields) WithMonth(month string) LogFields {
	f[FieldMonth] = month
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errType string) LogFields {
	f[FieldErrorType] = errType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds transaction fields. Amounts are logged in cents.
func (f LogFields) WithTransaction(id, desc string, amountCents int64, txType, status string) LogFields {
	f[FieldTransactionID] = id
	f[FieldDescription] = desc
	f[FieldAmountCents] = amountCents
	f[FieldTxType] = txType
	f[FieldTxStatus] = status
	return f
}

func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
