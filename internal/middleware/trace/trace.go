// Package trace tags requests with an id and counts them by outcome.
// Access logging lives in internal/log.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// HeaderRequestID carries the id in and out.
const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

// incoming ids are accepted only when they look harmless in logs
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Metrics is a snapshot of the middleware counters.
type Metrics struct {
	TotalRequests int64
	InFlight      int64
	ClientErrors  int64
	ServerErrors  int64
}

type Middleware struct {
	total, inFlight, client4xx, server5xx atomic.Int64
}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(id) {
			id = NewRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		m.total.Add(1)
		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		switch code := sw.code(); {
		case code >= 500:
			m.server5xx.Add(1)
		case code >= 400:
			m.client4xx.Add(1)
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// NewRequestID returns a short random id with a req_ prefix.
func NewRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// FromContext returns the id stored by the middleware, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RequestID reads the id the middleware stored on r.
func RequestID(r *http.Request) string {
	return FromContext(r.Context())
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests: m.total.Load(),
		InFlight:      m.inFlight.Load(),
		ClientErrors:  m.client4xx.Load(),
		ServerErrors:  m.server5xx.Load(),
	}
}
