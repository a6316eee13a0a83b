package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTodayTruncates(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 59, 1, 0, time.UTC)
	if got := Today(now); !got.Equal(NewDate(2024, 3, 9)) {
		t.Fatalf("got %s", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil || !d.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("unexpected %v %v", d, err)
	}
	if _, err := ParseDate("2023-02-29"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSigned(t *testing.T) {
	in := Transaction{Type: Income, Amount: Money{Cents: 500}}
	out := Transaction{Type: Expense, Amount: Money{Cents: 500}}
	if in.Signed().Cents != 500 || out.Signed().Cents != -500 {
		t.Fatalf("unexpected signed values %d %d", in.Signed().Cents, out.Signed().Cents)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2025, 1, 1),
		Description: "rent",
		Amount:      Money{Cents: 100},
		Category:    "Housing",
		Type:        Expense,
		Status:      Pending,
	}
	if err := good.ValidateEntry(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"blank description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"bad status", func(tx *Transaction) { tx.Status = "void" }, ErrInvalidStatus},
		{"no category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mutate(&tx)
			if err := tx.ValidateEntry(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGeneratedTransactionMayHaveZeroAmount(t *testing.T) {
	tx := Transaction{Date: NewDate(2025, 1, 1), Description: "free", Type: Expense, Status: Pending}
	if err := tx.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestCategoryAllows(t *testing.T) {
	c := Category{Name: "Food", Type: Expense}
	if err := c.Allows(Transaction{Type: Expense}); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := c.Allows(Transaction{Type: Income}); !errors.Is(err, ErrCategoryMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestBillTemplateValidate(t *testing.T) {
	for _, day := range []int{0, 32} {
		bt := BillTemplate{Description: "x", DayOfMonth: day}
		if err := bt.Validate(); !errors.Is(err, ErrInvalidDay) {
			t.Fatalf("day %d expected ErrInvalidDay, got %v", day, err)
		}
	}
	if err := (BillTemplate{Description: "x", DayOfMonth: 31}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	s := DefaultSettings("u1")
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	s.TaxRatePercent = decimal.NewFromInt(101)
	if err := s.Validate(); !errors.Is(err, ErrInvalidTaxRate) {
		t.Fatalf("expected ErrInvalidTaxRate, got %v", err)
	}
	s = DefaultSettings("u1")
	s.CustomPayday = 32
	if err := s.Validate(); !errors.Is(err, ErrInvalidDay) {
		t.Fatalf("expected ErrInvalidDay, got %v", err)
	}
}
