package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"cashflow/internal/charts"
	applog "cashflow/internal/log"
)

// handleDashboard returns the forecast and month-to-date summaries for ?date
// (default today).
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	today, err := ParseDateParam(r.URL.Query(), "date", s.now())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	d, err := s.svc.Forecast.Dashboard(r.Context(), uid, today)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(toDashboardJSON(d)).Write(w)
}

// handleProjectionChart renders the dashboard's balance series as a PNG.
func (s *Server) handleProjectionChart(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	today, err := ParseDateParam(r.URL.Query(), "date", s.now())
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}
	d, err := s.svc.Forecast.Dashboard(r.Context(), uid, today)
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}

	var buf bytes.Buffer
	if err := s.svc.Chart.Render(&buf, d.Forecast.Series); err != nil {
		if errors.Is(err, charts.ErrNotEnoughPoints) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		s.fail(w, r, applog.OpRender, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleBudget returns the budget report for ?month (default current month).
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	m, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	report, err := s.svc.Forecast.Budget(r.Context(), uid, m)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(toBudgetJSON(report)).Write(w)
}

// handleCalendar returns one running balance per day of ?month.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	m, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	days, err := s.svc.Forecast.Calendar(r.Context(), uid, m)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(map[string]any{
		"month": m.String(),
		"days":  toCalendarJSON(days),
	}).Write(w)
}
