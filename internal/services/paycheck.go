package services

import (
	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

var (
	overtimeMultiplier = decimal.RequireFromString("1.5")
	hundred            = decimal.NewFromInt(100)
)

// PaycheckInput holds the hours worked in a pay period.
type PaycheckInput struct {
	Hours         decimal.Decimal
	OvertimeHours decimal.Decimal
	Settings      core.Settings
}

func (in PaycheckInput) Validate() error {
	if in.Hours.IsNegative() || in.OvertimeHours.IsNegative() {
		return core.ErrNegativeHours
	}
	return in.Settings.Validate()
}

// CalculatePaycheck estimates net pay. Net pay is never negative.
func CalculatePaycheck(in PaycheckInput) core.Paycheck {
	rate := in.Settings.HourlyRate.Decimal()
	regular := in.Hours.Mul(rate)
	overtime := in.OvertimeHours.Mul(rate).Mul(overtimeMultiplier)
	gross := regular.Add(overtime)
	tax := gross.Mul(in.Settings.TaxRatePercent).Div(hundred)
	deductions := in.Settings.FixedDeductions.Decimal()
	net := decimal.Max(decimal.Zero, gross.Sub(tax).Sub(deductions))

	return core.Paycheck{
		RegularPay:  core.MoneyFromDecimal(regular),
		OvertimePay: core.MoneyFromDecimal(overtime),
		GrossPay:    core.MoneyFromDecimal(gross),
		TaxAmount:   core.MoneyFromDecimal(tax),
		Deductions:  in.Settings.FixedDeductions,
		NetPay:      core.MoneyFromDecimal(net),
		TaxRate:     in.Settings.TaxRatePercent,
	}
}
