package http

import (
	"net/http"
	"sync/atomic"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	cats, err := s.svc.Records.Categories(r.Context(), uid)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryJSON(c))
	}
	NewJSONResponse().JSON(out).Write(w)
}

// handleSaveCategory creates (POST) or replaces (PUT /{id}) a category.
func (s *Server) handleSaveCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	limit, err := p.OptionalAmount("budget_limit")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	saved, err := s.svc.Records.SaveCategory(r.Context(), core.Category{
		ID:          r.PathValue("id"),
		UserID:      uid,
		Name:        p.Get("name"),
		Type:        core.TransactionType(p.Get("type")),
		Group:       p.Get("group"),
		BudgetLimit: limit,
	})
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(savedStatus(r)).JSON(toCategoryJSON(saved)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Records.DeleteCategory(r.Context(), uid, r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	tpls, err := s.svc.Records.Templates(r.Context(), uid)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	out := make([]templateJSON, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, toTemplateJSON(t))
	}
	NewJSONResponse().JSON(out).Write(w)
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	amount, err := p.OptionalAmount("amount")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	day, err := p.Int("day_of_month")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	saved, err := s.svc.Records.SaveTemplate(r.Context(), core.BillTemplate{
		ID:          r.PathValue("id"),
		UserID:      uid,
		Description: p.Get("description"),
		Amount:      amount,
		DayOfMonth:  day,
		Category:    p.Get("category"),
	})
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(savedStatus(r)).JSON(toTemplateJSON(saved)).Write(w)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Records.DeleteTemplate(r.Context(), uid, r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleGenerateBills turns the user's templates into pending bills for the
// body's month (default current month).
func (s *Server) handleGenerateBills(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	m := core.MonthOf(core.Today(s.now()))
	if v := p.Get("month"); v != "" {
		parsed, err := core.ParseMonth(v)
		if err != nil {
			s.fail(w, r, applog.OpGenerate, fieldError("month", err))
			return
		}
		m = parsed
	}
	idempotent, err := p.Bool("idempotent")
	if err != nil {
		s.fail(w, r, applog.OpGenerate, err)
		return
	}

	res, err := s.svc.Bills.Generate(r.Context(), uid, m, services.GenerateOptions{Idempotent: idempotent})
	if err != nil {
		s.fail(w, r, applog.OpGenerate, err)
		return
	}
	atomic.AddInt64(&s.metrics.billsGenerated, int64(res.Count))
	s.events.LogBillsGenerated(r.Context(), uid, m.String(), res.Count, idempotent)

	NewJSONResponse().Status(http.StatusCreated).JSON(generationJSON{
		Month:        res.Month.String(),
		Count:        res.Count,
		Skipped:      res.Skipped,
		Idempotent:   res.Idempotent,
		Transactions: toTransactionsJSON(res.Transactions),
	}).Write(w)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	st, err := s.svc.Records.Settings(r.Context(), uid)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(toSettingsJSON(st)).Write(w)
}

// handleSaveSettings changes only the fields present in the body.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	st, err := s.svc.Records.Settings(r.Context(), uid)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	st.UserID = uid

	if p.Has("hourly_rate") {
		if st.HourlyRate, err = p.OptionalAmount("hourly_rate"); err != nil {
			s.fail(w, r, applog.OpUpdate, err)
			return
		}
	}
	if p.Has("fixed_deductions") {
		if st.FixedDeductions, err = p.OptionalAmount("fixed_deductions"); err != nil {
			s.fail(w, r, applog.OpUpdate, err)
			return
		}
	}
	if p.Has("tax_rate_percent") {
		if st.TaxRatePercent, err = p.Decimal("tax_rate_percent"); err != nil {
			s.fail(w, r, applog.OpUpdate, err)
			return
		}
	}
	if p.Has("custom_payday") {
		if st.CustomPayday, err = p.Int("custom_payday"); err != nil {
			s.fail(w, r, applog.OpUpdate, err)
			return
		}
	}

	if err := s.svc.Records.SaveSettings(r.Context(), st); err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().JSON(toSettingsJSON(st)).Write(w)
}

// handlePaycheckEstimate previews net pay for the given hours. With a
// pay_date it also records the estimate as income on that day.
func (s *Server) handlePaycheckEstimate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	hours, err := p.Decimal("hours")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	overtime, err := p.Decimal("overtime_hours")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	if p.Get("pay_date") == "" {
		pc, err := s.svc.Paycheck.Preview(r.Context(), uid, hours, overtime)
		if err != nil {
			s.fail(w, r, applog.OpRead, err)
			return
		}
		NewJSONResponse().JSON(map[string]any{"paycheck": toPaycheckJSON(pc)}).Write(w)
		return
	}

	payDate, err := p.Date("pay_date")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	pc, tx, err := s.svc.Paycheck.Estimate(r.Context(), uid, hours, overtime, payDate)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(map[string]any{
		"paycheck":    toPaycheckJSON(pc),
		"transaction": toTransactionJSON(tx),
	}).Write(w)
}

func savedStatus(r *http.Request) int {
	if r.Method == http.MethodPost {
		return http.StatusCreated
	}
	return http.StatusOK
}
