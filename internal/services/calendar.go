package services

import "cashflow/internal/core"

// CalendarBalances returns, for every day of m, the running balance of all
// transactions dated on or before that day, regardless of status.
func CalendarBalances(txs []core.Transaction, m core.Month) []core.DayBalance {
	days := make([]core.DayBalance, m.DaysIn())
	var opening int64
	for _, tx := range txs {
		if tx.Date.Before(m.Start()) {
			opening += tx.Signed().Cents
		}
	}
	for _, tx := range txs {
		if m.Contains(tx.Date) {
			i := tx.Date.Day() - 1
			days[i].Transactions = append(days[i].Transactions, tx)
		}
	}
	running := opening
	for i := range days {
		days[i].Date = m.Day(i + 1)
		for _, tx := range days[i].Transactions {
			running += tx.Signed().Cents
		}
		days[i].Balance = core.Money{Cents: running}
	}
	return days
}

// RunningBalanceOn sums every transaction dated on or before d.
func RunningBalanceOn(txs []core.Transaction, d core.Date) core.Money {
	var bal core.Money
	for _, tx := range txs {
		if !tx.Date.After(d) {
			bal = bal.Add(tx.Signed())
		}
	}
	return bal
}
