// Package services provides the forecasting engine and the application
// services that feed it from the record store.
package services

import "cashflow/internal/core"

// SeriesMode selects how the projected series treats cleared transactions
// dated today or later.
type SeriesMode string

const (
	// SeriesIncludeAll accumulates every transaction regardless of status.
	// A cleared transaction dated today or later is counted twice: once in
	// the current balance and again on its day in the series.
	SeriesIncludeAll SeriesMode = "include_all"
	// SeriesExcludeCleared accumulates only pending and estimated transactions.
	SeriesExcludeCleared SeriesMode = "exclude_cleared"
)

func (m SeriesMode) Valid() bool {
	return m == SeriesIncludeAll || m == SeriesExcludeCleared
}

// ProjectionOptions tunes Project. The zero value reproduces the
// observed behavior of the dashboard.
type ProjectionOptions struct {
	SeriesMode SeriesMode
	// PaydayFallback uses Settings.CustomPayday when no future income exists.
	PaydayFallback bool
	Settings       core.Settings
}

// Project computes the balance forecast as of today.
func Project(txs []core.Transaction, today core.Date, opts ProjectionOptions) core.Forecast {
	f := core.Forecast{Today: today, CurrentBalance: CurrentBalance(txs)}

	if payday, ok := NextPayday(txs, today); ok {
		f.NextPayday = &payday
	} else if opts.PaydayFallback && opts.Settings.CustomPayday > 0 {
		payday := nextCustomPayday(today, opts.Settings.CustomPayday)
		f.NextPayday = &payday
		f.PaydayFromSettings = true
	}

	if f.NextPayday != nil {
		f.BillsDue = BillsDue(txs, today, *f.NextPayday)
	}
	f.SafeToSpend = f.CurrentBalance.Sub(f.BillsDue)
	f.Series = ProjectSeries(txs, today, f.CurrentBalance, opts.SeriesMode)
	return f
}

// CurrentBalance sums the signed amounts of cleared transactions.
func CurrentBalance(txs []core.Transaction) core.Money {
	var bal core.Money
	for _, tx := range txs {
		if tx.Status == core.Cleared {
			bal = bal.Add(tx.Signed())
		}
	}
	return bal
}

// NextPayday returns the earliest income dated on or after today.
// Ties keep the first one in input order.
func NextPayday(txs []core.Transaction, today core.Date) (core.Date, bool) {
	var (
		best  core.Date
		found bool
	)
	for _, tx := range txs {
		if tx.Type != core.Income || tx.Date.Before(today) {
			continue
		}
		if !found || tx.Date.Before(best) {
			best, found = tx.Date, true
		}
	}
	return best, found
}

// BillsDue sums unsettled expenses dated in [today, payday].
func BillsDue(txs []core.Transaction, today, payday core.Date) core.Money {
	var due core.Money
	for _, tx := range txs {
		if tx.Type != core.Expense || tx.Status == core.Cleared {
			continue
		}
		if tx.Date.Before(today) || tx.Date.After(payday) {
			continue
		}
		due = due.Add(tx.Amount)
	}
	return due
}

// ProjectSeries returns HorizonDays consecutive points starting at today.
func ProjectSeries(txs []core.Transaction, today core.Date, start core.Money, mode SeriesMode) []core.ProjectionPoint {
	last := today.AddDays(core.HorizonDays - 1)
	perDay := make(map[string]int64)
	for _, tx := range txs {
		if tx.Date.Before(today) || tx.Date.After(last) {
			continue
		}
		if mode == SeriesExcludeCleared && tx.Status == core.Cleared {
			continue
		}
		perDay[tx.Date.String()] += tx.Signed().Cents
	}

	series := make([]core.ProjectionPoint, core.HorizonDays)
	running := start
	for i := range series {
		d := today.AddDays(i)
		running = running.Add(core.Money{Cents: perDay[d.String()]})
		series[i] = core.ProjectionPoint{Date: d, Balance: running}
	}
	return series
}

func nextCustomPayday(today core.Date, day int) core.Date {
	m := core.MonthOf(today)
	if d := m.Day(day); !d.Before(today) {
		return d
	}
	return m.Next().Day(day)
}
