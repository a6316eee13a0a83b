package sheets

import (
	"fmt"
	"strings"

	"cashflow/internal/core"
)

// Header is the first row of every mirrored budget tab.
var Header = []any{"Group", "Category", "Type", "Limit", "Spent", "Progress %", "Status"}

// BudgetRows lays a report out as spreadsheet rows: the header, one row per
// category in group order, a blank separator and the totals row. Amounts are
// plain decimal strings so the sheet never sees float rounding.
func BudgetRows(report core.BudgetReport) [][]any {
	rows := [][]any{Header}
	for _, g := range report.Groups {
		for _, cb := range g.Categories {
			rows = append(rows, []any{
				g.Name,
				cb.Category.Name,
				string(cb.Category.Type),
				cb.Category.BudgetLimit.String(),
				cb.Spent.String(),
				fmt.Sprintf("%.1f", cb.Progress),
				string(cb.Status),
			})
		}
	}
	rows = append(rows, []any{})
	status := "on_track"
	if report.OverBudget {
		status = "over_budget"
	}
	rows = append(rows, []any{
		"Total",
		report.Month.String(),
		"",
		report.TotalBudget.String(),
		report.TotalSpent.String(),
		fmt.Sprintf("%.1f", report.TotalProgress),
		status,
	})
	return rows
}

// TabName names the tab holding one user's month, e.g. "2024-05 Budget u1".
// Characters Sheets rejects in titles are replaced.
func TabName(base, userID string, m core.Month) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "Budget"
	}
	name := fmt.Sprintf("%s %s %s", m.String(), base, userID)
	name = strings.NewReplacer("'", "_", "!", "_", "[", "(", "]", ")", "*", "_", "?", "_", ":", "_", "/", "_", "\\", "_").Replace(name)
	if len(name) > 100 {
		name = name[:100]
	}
	return strings.TrimSpace(name)
}
