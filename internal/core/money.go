package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// plainAmount admits unsigned decimals with an optional fraction, e.g. "12",
// "12.5", ".75". Signs and exponents are rejected before decimal sees them.
var plainAmount = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// Largest whole-unit value whose cent count still fits an int64.
var maxUnits = decimal.New((1<<63-1)/100, 0)

// ParseDecimalToCents parses a strictly positive amount, see ParseAmount.
//
//	ParseDecimalToCents("12,34")  -> 1234
//	ParseDecimalToCents("12.345") -> 1235
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if cents == 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseAmount converts a user-entered amount to cents. A comma works as the
// decimal separator and extra fraction digits round half-up. Zero is allowed.
func ParseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if !plainAmount.MatchString(s) {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.GreaterThanOrEqual(maxUnits) {
		return 0, ErrInvalidAmount
	}
	return MoneyFromDecimal(d).Cents, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// MoneyFromDecimal rounds d half away from zero to whole cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// Units is for charting only.
func (m Money) Units() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
