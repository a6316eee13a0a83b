package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cashflow/internal/core"
)

func TestWhereDollarPlaceholders(t *testing.T) {
	typ := core.Expense
	from := core.NewDate(2024, 1, 1)
	f := TransactionFilter{UserID: "u", Type: &typ, From: &from}

	clause, args := f.Where(DollarDialect, 0)
	assert.Equal(t, " WHERE user_id = $1 AND type = $2 AND date >= $3", clause)
	assert.Equal(t, []any{"u", "expense", from.Time}, args)
}

func TestWhereQuestionPlaceholders(t *testing.T) {
	reviewed := false
	clause, args := TransactionFilter{Reviewed: &reviewed}.Where(QuestionDialect, 0)
	assert.Equal(t, " WHERE reviewed = ?", clause)
	assert.Equal(t, []any{false}, args)

	clause, args = TransactionFilter{}.Where(QuestionDialect, 0)
	assert.Empty(t, clause)
	assert.Nil(t, args)
}

func TestPatchSet(t *testing.T) {
	cleared := core.Cleared
	empty := ""
	set, args := TransactionPatch{Status: &cleared, CategoryID: &empty}.Set(DollarDialect, 2)
	assert.Equal(t, "category_id = $3, status = $4", set)
	assert.Equal(t, []any{nil, "cleared"}, args)
}

func TestMatchAndApply(t *testing.T) {
	tx := core.Transaction{UserID: "u", Type: core.Expense, Status: core.Pending, Date: core.NewDate(2024, 1, 5)}
	excl := core.Cleared
	to := core.NewDate(2024, 1, 4)
	assert.True(t, TransactionFilter{UserID: "u", ExcludeStatus: &excl}.Match(tx))
	assert.False(t, TransactionFilter{To: &to}.Match(tx))

	d := core.NewDate(2024, 2, 1)
	got := TransactionPatch{Date: &d}.Apply(tx)
	assert.True(t, got.Date.Equal(d))
	assert.Equal(t, core.Pending, got.Status)
}
