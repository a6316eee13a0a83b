// Package core holds the cash flow domain: money, dates, transactions, bill
// templates and settings, together with their validation rules.
package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Cleared   TransactionStatus = "cleared"
	Pending   TransactionStatus = "pending"
	Estimated TransactionStatus = "estimated"
)

const maxDescriptionLen = 200

type (
	TransactionType   string
	TransactionStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string
		UserID      string
		Amount      Money // magnitude only, sign comes from Type
		Date        Date
		Description string
		Category    string // legacy category name
		CategoryID  string // optional reference to Category.ID
		Type        TransactionType
		Status      TransactionStatus
		Reviewed    bool
		SourceKey   string // set by bill generation, empty otherwise
		CreatedAt   time.Time
	}

	Category struct {
		ID          string
		UserID      string
		Name        string
		Type        TransactionType
		Group       string
		BudgetLimit Money // zero means no budget
	}

	BillTemplate struct {
		ID          string
		UserID      string
		Description string
		Amount      Money
		DayOfMonth  int
		Category    string
	}

	Settings struct {
		UserID          string
		HourlyRate      Money
		TaxRatePercent  decimal.Decimal
		FixedDeductions Money
		CustomPayday    int // 0 when unset
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidStatus      = errors.New("invalid transaction status")
	ErrCategoryMismatch   = errors.New("category type does not match transaction type")
	ErrInvalidTaxRate     = errors.New("tax rate must be between 0 and 100")
	ErrNegativeHours      = errors.New("hours cannot be negative")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case Cleared, Pending, Estimated:
		return true
	}
	return false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today truncates a wall clock reading to its calendar date.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

// Signed returns the contribution of the transaction to a balance.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ValidateEntry applies the stricter rules for user-entered transactions.
func (t Transaction) ValidateEntry() error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" && strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if c.BudgetLimit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Allows reports whether tx may reference this category.
func (c Category) Allows(tx Transaction) error {
	if c.Type != tx.Type {
		return ErrCategoryMismatch
	}
	return nil
}

func (bt BillTemplate) Validate() error {
	if len(strings.TrimSpace(bt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(bt.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if bt.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if bt.DayOfMonth < 1 || bt.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	return nil
}

func (s Settings) Validate() error {
	if s.HourlyRate.Cents < 0 || s.FixedDeductions.Cents < 0 {
		return ErrInvalidAmount
	}
	if s.TaxRatePercent.IsNegative() || s.TaxRatePercent.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidTaxRate
	}
	if s.CustomPayday < 0 || s.CustomPayday > 31 {
		return ErrInvalidDay
	}
	return nil
}

// DefaultSettings is what a user without stored settings gets.
func DefaultSettings(userID string) Settings {
	return Settings{UserID: userID, TaxRatePercent: decimal.Zero}
}
