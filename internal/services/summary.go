package services

import (
	"sort"

	"cashflow/internal/core"
)

// IncomeMonthToDate sums cleared income from the first of today's month through today.
func IncomeMonthToDate(txs []core.Transaction, today core.Date) core.Money {
	start := core.MonthOf(today).Start()
	var total core.Money
	for _, tx := range txs {
		if tx.Type != core.Income || tx.Status != core.Cleared {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(today) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

// OutstandingBills sums every expense that has not cleared, whatever its date.
func OutstandingBills(txs []core.Transaction) core.Money {
	var total core.Money
	for _, tx := range txs {
		if tx.Type == core.Expense && tx.Status != core.Cleared {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// ReviewInbox returns unreviewed transactions, newest first.
func ReviewInbox(txs []core.Transaction) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if !tx.Reviewed {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
