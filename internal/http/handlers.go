package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the record store answers
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.svc.Ready == nil {
		checks["store"] = "not_checked"
	} else if err := s.svc.Ready(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics exposes counters in Prometheus text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	counters := []struct {
		name, help, kind string
		value            float64
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", float64(traceMetrics.TotalRequests)},
		{"http_requests_in_flight", "Requests currently being served", "gauge", float64(traceMetrics.InFlight)},
		{"http_client_errors_total", "Responses with a 4xx status", "counter", float64(traceMetrics.ClientErrors)},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", float64(traceMetrics.ServerErrors)},
		{"transactions_created_total", "Transactions created through the API", "counter", float64(atomic.LoadInt64(&s.metrics.transactionsCreated))},
		{"bills_generated_total", "Bills generated through the API", "counter", float64(atomic.LoadInt64(&s.metrics.billsGenerated))},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", float64(rateMetrics.TotalHits)},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", float64(rateMetrics.ClientCount)},
		{"suspicious_requests_total", "Requests flagged as probes", "counter", float64(securityMetrics.SuspiciousRequests)},
		{"uptime_seconds", "Application uptime in seconds", "gauge", time.Since(s.metrics.uptime).Seconds()},
	}

	w.WriteHeader(http.StatusOK)
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %.0f\n\n", c.name, c.help, c.name, c.kind, c.name, c.value)
	}
}
