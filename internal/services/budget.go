package services

import "cashflow/internal/core"

const warningThreshold = 85.0

// AggregateBudget rolls up month spending by category and group.
// Transactions dated outside m are ignored.
func AggregateBudget(categories []core.Category, txs []core.Transaction, m core.Month) core.BudgetReport {
	spent := make(map[string]int64)
	for _, tx := range txs {
		if tx.CategoryID == "" || !m.Contains(tx.Date) {
			continue
		}
		spent[tx.CategoryID] += tx.Amount.Cents
	}

	report := core.BudgetReport{Month: m}
	groupIdx := make(map[string]int)
	expenseIDs := make(map[string]bool)
	for _, c := range categories {
		cb := core.CategoryBudget{Category: c, Spent: core.Money{Cents: spent[c.ID]}, Status: core.OnTrack}
		if c.BudgetLimit.Cents > 0 {
			cb.Progress = min(percent(cb.Spent, c.BudgetLimit), 100)
		}
		if c.Type == core.Expense {
			expenseIDs[c.ID] = true
			report.TotalBudget = report.TotalBudget.Add(c.BudgetLimit)
			cb.Status = budgetStatus(cb.Spent, c.BudgetLimit)
		}

		i, ok := groupIdx[c.Group]
		if !ok {
			i = len(report.Groups)
			groupIdx[c.Group] = i
			report.Groups = append(report.Groups, core.BudgetGroup{Name: c.Group})
		}
		report.Groups[i].Categories = append(report.Groups[i].Categories, cb)
	}

	for _, tx := range txs {
		if expenseIDs[tx.CategoryID] && m.Contains(tx.Date) {
			report.TotalSpent = report.TotalSpent.Add(tx.Amount)
		}
	}
	if report.TotalBudget.Cents > 0 {
		report.TotalProgress = percent(report.TotalSpent, report.TotalBudget)
		report.TotalProgressClamped = min(report.TotalProgress, 100)
	}
	report.OverBudget = report.TotalSpent.Cents > report.TotalBudget.Cents
	return report
}

func budgetStatus(spent, limit core.Money) core.BudgetStatus {
	if limit.Cents <= 0 {
		return core.OnTrack
	}
	p := percent(spent, limit)
	switch {
	case p >= 100:
		return core.OverLimit
	case p >= warningThreshold:
		return core.Warning
	default:
		return core.OnTrack
	}
}

func percent(part, whole core.Money) float64 {
	return float64(part.Cents) / float64(whole.Cents) * 100
}
