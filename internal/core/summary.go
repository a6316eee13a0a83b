package core

import "github.com/shopspring/decimal"

// HorizonDays is the length of the projected balance series.
const HorizonDays = 30

const (
	OnTrack   BudgetStatus = "on_track"
	Warning   BudgetStatus = "warning"
	OverLimit BudgetStatus = "over_limit"
)

type BudgetStatus string

// ProjectionPoint is one day of the projected balance series.
type ProjectionPoint struct {
	Date    Date
	Balance Money
}

// Forecast is the balance view for a given day.
type Forecast struct {
	Today              Date
	CurrentBalance     Money
	NextPayday         *Date
	PaydayFromSettings bool
	BillsDue           Money
	SafeToSpend        Money
	Series             []ProjectionPoint
}

// Dashboard bundles the forecast with month-to-date figures.
type Dashboard struct {
	Forecast         Forecast
	IncomeMTD        Money
	OutstandingBills Money
	UnreviewedCount  int
}

// DayBalance is the running balance at the end of a calendar day.
type DayBalance struct {
	Date         Date
	Balance      Money
	Transactions []Transaction
}

type CategoryBudget struct {
	Category Category
	Spent    Money
	Progress float64 // percent, clamped to [0, 100]
	Status   BudgetStatus
}

type BudgetGroup struct {
	Name       string
	Categories []CategoryBudget
}

// BudgetReport is the per-month rollup of spending against limits.
type BudgetReport struct {
	Month                Month
	Groups               []BudgetGroup
	TotalBudget          Money
	TotalSpent           Money
	TotalProgress        float64
	TotalProgressClamped float64
	OverBudget           bool
}

// GenerationResult describes one bill generation run.
// Count and Transactions cover the bills written. Skipped counts the bills
// an idempotent run found already stored.
type GenerationResult struct {
	Month        Month
	Count        int
	Skipped      int
	Idempotent   bool
	Transactions []Transaction
}

// Paycheck is the breakdown of a net pay estimate.
type Paycheck struct {
	RegularPay  Money
	OvertimePay Money
	GrossPay    Money
	TaxAmount   Money
	Deductions  Money
	NetPay      Money
	TaxRate     decimal.Decimal
}
