package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"cashflow/internal/charts"
	applog "cashflow/internal/log"
	"cashflow/internal/middleware/ratelimit"
	"cashflow/internal/middleware/security"
	"cashflow/internal/middleware/trace"
	"cashflow/internal/services"
)

// Services are the application services the handlers delegate to.
type Services struct {
	Forecast     *services.ForecastService
	Transactions *services.TransactionService
	Records      *services.RecordService
	Bills        *services.BillService
	Paycheck     *services.PaycheckService
	Chart        *charts.ProjectionChart
	// Ready probes the record store for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Now is the wall clock used for "today" defaults.
	Now func() time.Time
}

type appMetrics struct {
	transactionsCreated int64
	billsGenerated      int64
	uptime              time.Time
}

type Server struct {
	http.Server
	svc     Services
	now     func() time.Time
	logger  *applog.Logger
	events  *applog.StructuredLogger
	metrics appMetrics

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if svc.Chart == nil {
		svc.Chart = charts.NewProjectionChart()
	}

	detector := security.NewDetector()
	s := &Server{
		svc:              svc,
		now:              opts.Now,
		logger:           opts.Logger,
		events:           applog.NewStructuredLogger(opts.Logger),
		metrics:          appMetrics{uptime: time.Now()},
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           ratelimit.WriteMethods,
		}),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(s.logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.Handle("GET /api/projection.png", security.PrivateCache(60)(http.HandlerFunc(s.handleProjectionChart)))
	mux.HandleFunc("GET /api/budget", s.handleBudget)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/paid", s.handleMarkPaid)
	mux.HandleFunc("POST /api/transactions/{id}/reviewed", s.handleMarkReviewed)
	mux.HandleFunc("POST /api/transactions/{id}/reschedule", s.handleReschedule)
	mux.HandleFunc("GET /api/inbox", s.handleInbox)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleSaveCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleSaveCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("POST /api/templates", s.handleSaveTemplate)
	mux.HandleFunc("PUT /api/templates/{id}", s.handleSaveTemplate)
	mux.HandleFunc("DELETE /api/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/bills/generate", s.handleGenerateBills)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleSaveSettings)
	mux.HandleFunc("POST /api/paycheck/estimate", s.handlePaycheckEstimate)
}

// rateLimitKey counts per user when identified, else per client address.
func (s *Server) rateLimitKey(r *http.Request) string {
	if id := sanitizeInput(r.Header.Get(HeaderUserID)); id != "" {
		return "user:" + id
	}
	return "ip:" + s.securityDetector.ExtractClientIP(r)
}

// fail logs unexpected errors and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	s.events.LogFailure(r.Context(), op, err, resp.statusCode)
	resp.Write(w)
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe runs until Shutdown; the closed-server error is swallowed.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
