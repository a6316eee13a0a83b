package http

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/store"
)

// parseTransactionFilter reads ?month, ?from, ?to, ?type, ?status,
// ?reviewed and ?category_id. A month wins over from/to.
func (s *Server) parseTransactionFilter(r *http.Request) (store.TransactionFilter, error) {
	q := r.URL.Query()
	var f store.TransactionFilter

	if q.Get("month") != "" || q.Get("year") != "" {
		m, err := ParseMonthParams(q, s.now())
		if err != nil {
			return f, err
		}
		f = store.MonthFilter("", m)
	} else {
		for _, key := range []string{"from", "to"} {
			v := strings.TrimSpace(q.Get(key))
			if v == "" {
				continue
			}
			d, err := core.ParseDate(v)
			if err != nil {
				return f, fieldError(key, err)
			}
			if key == "from" {
				f.From = &d
			} else {
				f.To = &d
			}
		}
	}

	if v := q.Get("type"); v != "" {
		t := core.TransactionType(v)
		if !t.Valid() {
			return f, fieldError("type", core.ErrInvalidType)
		}
		f.Type = &t
	}
	if v := q.Get("status"); v != "" {
		st := core.TransactionStatus(v)
		if !st.Valid() {
			return f, fieldError("status", core.ErrInvalidStatus)
		}
		f.Status = &st
	}
	if v := q.Get("reviewed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fieldError("reviewed", nil)
		}
		f.Reviewed = &b
	}
	if v := sanitizeInput(q.Get("category_id")); v != "" {
		f.CategoryID = &v
	}
	return f, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	f, err := s.parseTransactionFilter(r)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	txs, err := s.svc.Transactions.List(r.Context(), uid, f)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().JSON(toTransactionsJSON(txs)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}

	amount, err := p.Amount("amount")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	date := core.Today(s.now())
	if p.Get("date") != "" {
		if date, err = p.Date("date"); err != nil {
			s.fail(w, r, applog.OpCreate, err)
			return
		}
	}

	tx, err := s.svc.Transactions.Create(r.Context(), core.Transaction{
		UserID:      uid,
		Amount:      amount,
		Date:        date,
		Description: p.Get("description"),
		Category:    p.Get("category"),
		CategoryID:  p.Get("category_id"),
		Type:        core.TransactionType(p.Get("type")),
		Status:      core.TransactionStatus(p.Get("status")),
	})
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	atomic.AddInt64(&s.metrics.transactionsCreated, 1)
	s.events.LogTransactionCreated(r.Context(), uid, tx.ID, tx.Description, tx.Amount.Cents, string(tx.Type), string(tx.Status))
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		JSON(toTransactionJSON(tx)).
		Write(w)
}

// handleUpdateTransaction applies the fields present in the body.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}

	var patch store.TransactionPatch
	if p.Has("amount") {
		amount, err := p.Amount("amount")
		if err != nil {
			s.fail(w, r, applog.OpUpdate, err)
			return
		}
		patch.Amount = &amount
	}
	if p.Has("date") {
		d, err := p.Date("date")
		if err != nil {
			s.fail(w, r, applog.OpUpdate, err)
			return
		}
		patch.Date = &d
	}
	if p.Has("description") {
		v := p.Get("description")
		patch.Description = &v
	}
	if p.Has("category") {
		v := p.Get("category")
		patch.Category = &v
	}
	if p.Has("category_id") {
		v := p.Get("category_id")
		patch.CategoryID = &v
	}
	if p.Has("type") {
		v := core.TransactionType(p.Get("type"))
		patch.Type = &v
	}
	if p.Has("status") {
		v := core.TransactionStatus(p.Get("status"))
		patch.Status = &v
	}
	if p.Has("reviewed") {
		v, err := p.Bool("reviewed")
		if err != nil {
			s.fail(w, r, applog.OpUpdate, err)
			return
		}
		patch.Reviewed = &v
	}

	tx, err := s.svc.Transactions.Update(r.Context(), uid, r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().JSON(toTransactionJSON(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	tx, err := s.svc.Transactions.MarkPaid(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().JSON(toTransactionJSON(tx)).Write(w)
}

func (s *Server) handleMarkReviewed(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	tx, err := s.svc.Transactions.MarkReviewed(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().JSON(toTransactionJSON(tx)).Write(w)
}

// handleReschedule moves an expense to the body's date.
func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	to, err := p.Date("date")
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	tx, err := s.svc.Transactions.Reschedule(r.Context(), uid, r.PathValue("id"), to)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().JSON(toTransactionJSON(tx)).Write(w)
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	txs, err := s.svc.Transactions.Inbox(r.Context(), uid)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().JSON(toTransactionsJSON(txs)).Write(w)
}
