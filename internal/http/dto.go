package http

import (
	"time"

	"cashflow/internal/core"
)

// Amounts travel as fixed two-decimal strings, dates as YYYY-MM-DD.

type transactionJSON struct {
	ID          string    `json:"id"`
	Amount      string    `json:"amount"`
	Signed      string    `json:"signed_amount"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	CategoryID  string    `json:"category_id,omitempty"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Reviewed    bool      `json:"reviewed"`
	SourceKey   string    `json:"source_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Amount:      t.Amount.String(),
		Signed:      t.Signed().String(),
		Date:        t.Date.String(),
		Description: t.Description,
		Category:    t.Category,
		CategoryID:  t.CategoryID,
		Type:        string(t.Type),
		Status:      string(t.Status),
		Reviewed:    t.Reviewed,
		SourceKey:   t.SourceKey,
		CreatedAt:   t.CreatedAt,
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type categoryJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Group       string `json:"group,omitempty"`
	BudgetLimit string `json:"budget_limit"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{
		ID:          c.ID,
		Name:        c.Name,
		Type:        string(c.Type),
		Group:       c.Group,
		BudgetLimit: c.BudgetLimit.String(),
	}
}

type templateJSON struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	DayOfMonth  int    `json:"day_of_month"`
	Category    string `json:"category,omitempty"`
}

func toTemplateJSON(t core.BillTemplate) templateJSON {
	return templateJSON{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount.String(),
		DayOfMonth:  t.DayOfMonth,
		Category:    t.Category,
	}
}

type settingsJSON struct {
	HourlyRate      string `json:"hourly_rate"`
	TaxRatePercent  string `json:"tax_rate_percent"`
	FixedDeductions string `json:"fixed_deductions"`
	CustomPayday    *int   `json:"custom_payday"`
}

func toSettingsJSON(s core.Settings) settingsJSON {
	out := settingsJSON{
		HourlyRate:      s.HourlyRate.String(),
		TaxRatePercent:  s.TaxRatePercent.String(),
		FixedDeductions: s.FixedDeductions.String(),
	}
	if s.CustomPayday > 0 {
		day := s.CustomPayday
		out.CustomPayday = &day
	}
	return out
}

type pointJSON struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

type forecastJSON struct {
	Today              string      `json:"today"`
	CurrentBalance     string      `json:"current_balance"`
	NextPayday         *string     `json:"next_payday"`
	PaydayFromSettings bool        `json:"payday_from_settings"`
	BillsDue           string      `json:"bills_due"`
	SafeToSpend        string      `json:"safe_to_spend"`
	Series             []pointJSON `json:"series"`
}

type dashboardJSON struct {
	Forecast         forecastJSON `json:"forecast"`
	IncomeMTD        string       `json:"income_mtd"`
	OutstandingBills string       `json:"outstanding_bills"`
	UnreviewedCount  int          `json:"unreviewed_count"`
}

func toDashboardJSON(d core.Dashboard) dashboardJSON {
	f := d.Forecast
	fj := forecastJSON{
		Today:              f.Today.String(),
		CurrentBalance:     f.CurrentBalance.String(),
		PaydayFromSettings: f.PaydayFromSettings,
		BillsDue:           f.BillsDue.String(),
		SafeToSpend:        f.SafeToSpend.String(),
		Series:             make([]pointJSON, 0, len(f.Series)),
	}
	if f.NextPayday != nil {
		s := f.NextPayday.String()
		fj.NextPayday = &s
	}
	for _, p := range f.Series {
		fj.Series = append(fj.Series, pointJSON{Date: p.Date.String(), Balance: p.Balance.String()})
	}
	return dashboardJSON{
		Forecast:         fj,
		IncomeMTD:        d.IncomeMTD.String(),
		OutstandingBills: d.OutstandingBills.String(),
		UnreviewedCount:  d.UnreviewedCount,
	}
}

type categoryBudgetJSON struct {
	Category categoryJSON `json:"category"`
	Spent    string       `json:"spent"`
	Progress float64      `json:"progress"`
	Status   string       `json:"status"`
}

type budgetGroupJSON struct {
	Name       string               `json:"name"`
	Categories []categoryBudgetJSON `json:"categories"`
}

type budgetJSON struct {
	Month                string            `json:"month"`
	Groups               []budgetGroupJSON `json:"groups"`
	TotalBudget          string            `json:"total_budget"`
	TotalSpent           string            `json:"total_spent"`
	TotalProgress        float64           `json:"total_progress"`
	TotalProgressClamped float64           `json:"total_progress_clamped"`
	OverBudget           bool              `json:"over_budget"`
}

func toBudgetJSON(b core.BudgetReport) budgetJSON {
	out := budgetJSON{
		Month:                b.Month.String(),
		Groups:               make([]budgetGroupJSON, 0, len(b.Groups)),
		TotalBudget:          b.TotalBudget.String(),
		TotalSpent:           b.TotalSpent.String(),
		TotalProgress:        b.TotalProgress,
		TotalProgressClamped: b.TotalProgressClamped,
		OverBudget:           b.OverBudget,
	}
	for _, g := range b.Groups {
		gj := budgetGroupJSON{Name: g.Name, Categories: make([]categoryBudgetJSON, 0, len(g.Categories))}
		for _, cb := range g.Categories {
			gj.Categories = append(gj.Categories, categoryBudgetJSON{
				Category: toCategoryJSON(cb.Category),
				Spent:    cb.Spent.String(),
				Progress: cb.Progress,
				Status:   string(cb.Status),
			})
		}
		out.Groups = append(out.Groups, gj)
	}
	return out
}

type dayJSON struct {
	Date         string            `json:"date"`
	Balance      string            `json:"balance"`
	Transactions []transactionJSON `json:"transactions"`
}

func toCalendarJSON(days []core.DayBalance) []dayJSON {
	out := make([]dayJSON, 0, len(days))
	for _, d := range days {
		out = append(out, dayJSON{
			Date:         d.Date.String(),
			Balance:      d.Balance.String(),
			Transactions: toTransactionsJSON(d.Transactions),
		})
	}
	return out
}

type generationJSON struct {
	Month        string            `json:"month"`
	Count        int               `json:"count"`
	Skipped      int               `json:"skipped"`
	Idempotent   bool              `json:"idempotent"`
	Transactions []transactionJSON `json:"transactions"`
}

type paycheckJSON struct {
	RegularPay  string `json:"regular_pay"`
	OvertimePay string `json:"overtime_pay"`
	GrossPay    string `json:"gross_pay"`
	TaxAmount   string `json:"tax_amount"`
	Deductions  string `json:"deductions"`
	NetPay      string `json:"net_pay"`
	TaxRate     string `json:"tax_rate"`
}

func toPaycheckJSON(p core.Paycheck) paycheckJSON {
	return paycheckJSON{
		RegularPay:  p.RegularPay.String(),
		OvertimePay: p.OvertimePay.String(),
		GrossPay:    p.GrossPay.String(),
		TaxAmount:   p.TaxAmount.String(),
		Deductions:  p.Deductions.String(),
		NetPay:      p.NetPay.String(),
		TaxRate:     p.TaxRate.String(),
	}
}
