package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

type seedFile struct {
	Categories []struct {
		ID          string `json:"id"`
		UserID      string `json:"user_id"`
		Name        string `json:"name"`
		Type        string `json:"type"`
		Group       string `json:"group"`
		BudgetLimit string `json:"budget_limit"`
	} `json:"categories"`
	Templates []struct {
		ID          string `json:"id"`
		UserID      string `json:"user_id"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		DayOfMonth  int    `json:"day_of_month"`
		Category    string `json:"category"`
	} `json:"bill_templates"`
	Settings []struct {
		UserID          string `json:"user_id"`
		HourlyRate      string `json:"hourly_rate"`
		TaxRatePercent  string `json:"tax_rate_percent"`
		FixedDeductions string `json:"fixed_deductions"`
		CustomPayday    int    `json:"custom_payday"`
	} `json:"settings"`
}

// NewFromFile builds a store seeded with categories, templates and settings
// from a JSON file. An empty path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for _, c := range seed.Categories {
		limit, err := parseOptionalAmount(c.BudgetLimit)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
		cat := core.Category{ID: c.ID, UserID: c.UserID, Name: c.Name, Type: core.TransactionType(c.Type), Group: c.Group, BudgetLimit: limit}
		if err := cat.Validate(); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
		if cat.ID == "" {
			cat.ID = c.Name
		}
		s.categories = append(s.categories, cat)
	}
	for _, t := range seed.Templates {
		amount, err := parseOptionalAmount(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Description, err)
		}
		bt := core.BillTemplate{ID: t.ID, UserID: t.UserID, Description: t.Description, Amount: amount, DayOfMonth: t.DayOfMonth, Category: t.Category}
		if err := bt.Validate(); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Description, err)
		}
		if bt.ID == "" {
			bt.ID = fmt.Sprintf("tpl-%d", len(s.templates)+1)
		}
		s.templates = append(s.templates, bt)
	}
	for _, st := range seed.Settings {
		rate, err := parseOptionalAmount(st.HourlyRate)
		if err != nil {
			return nil, fmt.Errorf("settings %q: %w", st.UserID, err)
		}
		ded, err := parseOptionalAmount(st.FixedDeductions)
		if err != nil {
			return nil, fmt.Errorf("settings %q: %w", st.UserID, err)
		}
		tax := decimal.Zero
		if st.TaxRatePercent != "" {
			if tax, err = decimal.NewFromString(st.TaxRatePercent); err != nil {
				return nil, fmt.Errorf("settings %q: %w", st.UserID, core.ErrInvalidTaxRate)
			}
		}
		set := core.Settings{UserID: st.UserID, HourlyRate: rate, TaxRatePercent: tax, FixedDeductions: ded, CustomPayday: st.CustomPayday}
		if err := set.Validate(); err != nil {
			return nil, fmt.Errorf("settings %q: %w", st.UserID, err)
		}
		s.settings[st.UserID] = set
	}
	return s, nil
}

func parseOptionalAmount(s string) (core.Money, error) {
	if s == "" {
		return core.Money{}, nil
	}
	c, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: c}, nil
}
