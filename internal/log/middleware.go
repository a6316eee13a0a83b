package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey struct{}

// Middleware stores logger in the request context and writes one access
// line per request once the handler returns.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			ctx := context.WithValue(r.Context(), ctxKey{}, logger)
			next.ServeHTTP(rec, r.WithContext(ctx))

			// RequestIDMiddleware runs inside, so re-read the enriched logger.
			l := logger
			if inner, ok := rec.logger(); ok {
				l = inner
			}
			l.Logger.Log(ctx, levelFor(rec.status), "HTTP request completed",
				FieldComponent, l.component,
				FieldMethod, r.Method,
				FieldPath, r.URL.Path,
				FieldStatusCode, rec.status,
				FieldDuration, time.Since(start).Milliseconds())
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	inner  *Logger
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) logger() (*Logger, bool) {
	return r.inner, r.inner != nil
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

// RequestIDMiddleware tags the request logger with the id extractRequestID returns.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			if rec, ok := w.(*statusRecorder); ok {
				rec.inner = logger
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger writes the domain events worth keeping in the log.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// from prefers the request logger so events carry the request id.
func (sl *StructuredLogger) from(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return sl.logger
}

func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, userID, id, desc string, amountCents int64, txType, status string) {
	fields := NewFields().
		WithTransaction(id, desc, amountCents, txType, status).
		WithUser(userID).
		WithOperation(OpCreate)
	sl.from(ctx).WithComponent(ComponentTransaction).InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogBillsGenerated(ctx context.Context, userID, month string, count int, idempotent bool) {
	fields := NewFields().
		WithUser(userID).
		WithMonth(month).
		WithOperation(OpGenerate)
	fields[FieldCount] = count
	fields[FieldIdempotent] = idempotent
	sl.from(ctx).WithComponent(ComponentBills).InfoContext(ctx, "Bills generated", fields.ToSlice()...)
}

// LogFailure records a failed operation; server errors at error level,
// rejected input at debug.
func (sl *StructuredLogger) LogFailure(ctx context.Context, operation string, err error, status int) {
	fields := NewFields().
		WithOperation(operation).
		WithError(err).
		WithErrorType(ErrorTypeForStatus(status))
	l := sl.from(ctx)
	if status >= http.StatusInternalServerError {
		l.ErrorContext(ctx, "Request failed", fields.ToSlice()...)
		return
	}
	l.DebugContext(ctx, "Request rejected", fields.ToSlice()...)
}
