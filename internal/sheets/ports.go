// Package sheets mirrors budget reports into spreadsheets.
package sheets

import (
	"context"

	"cashflow/internal/core"
)

// BudgetWriter replaces the mirrored budget of one user and month.
type BudgetWriter interface {
	// WriteBudget returns a reference to the written range.
	WriteBudget(ctx context.Context, userID string, report core.BudgetReport) (ref string, err error)
}
