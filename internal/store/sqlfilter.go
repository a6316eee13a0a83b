package store

import (
	"fmt"
	"strings"

	"cashflow/internal/core"
)

// Dialect describes how a SQL backend spells parameters and dates.
type Dialect struct {
	Placeholder func(n int) string
	Date        func(d core.Date) any
}

var (
	// QuestionDialect uses ? placeholders and ISO date strings.
	QuestionDialect = Dialect{
		Placeholder: func(int) string { return "?" },
		Date:        func(d core.Date) any { return d.String() },
	}
	// DollarDialect uses $n placeholders and native dates.
	DollarDialect = Dialect{
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		Date:        func(d core.Date) any { return d.Time },
	}
)

// Where renders the filter as a SQL WHERE clause over the transactions
// table columns. argStart is the number of arguments already bound.
func (f TransactionFilter) Where(d Dialect, argStart int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col, op string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s %s %s", col, op, d.Placeholder(argStart+len(args))))
	}
	if f.UserID != "" {
		add("user_id", "=", f.UserID)
	}
	if f.Type != nil {
		add("type", "=", string(*f.Type))
	}
	if f.Status != nil {
		add("status", "=", string(*f.Status))
	}
	if f.ExcludeStatus != nil {
		add("status", "<>", string(*f.ExcludeStatus))
	}
	if f.From != nil {
		add("date", ">=", d.Date(*f.From))
	}
	if f.To != nil {
		add("date", "<=", d.Date(*f.To))
	}
	if f.CategoryID != nil {
		add("category_id", "=", *f.CategoryID)
	}
	if f.Reviewed != nil {
		add("reviewed", "=", *f.Reviewed)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Set renders the patch as a SQL SET list. It returns an empty string when
// the patch changes nothing.
func (p TransactionPatch) Set(d Dialect, argStart int) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", col, d.Placeholder(argStart+len(args))))
	}
	if p.Amount != nil {
		add("amount_cents", p.Amount.Cents)
	}
	if p.Date != nil {
		add("date", d.Date(*p.Date))
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.CategoryID != nil {
		add("category_id", NullIfEmpty(*p.CategoryID))
	}
	if p.Type != nil {
		add("type", string(*p.Type))
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Reviewed != nil {
		add("reviewed", *p.Reviewed)
	}
	return strings.Join(sets, ", "), args
}

// NullIfEmpty maps "" to a SQL NULL.
func NullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
