package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

const (
	estimateDescription = "Estimated Paycheck"
	estimateCategory    = "Income"
)

// PaycheckService turns an hours estimate into an estimated income entry.
type PaycheckService struct {
	store store.Store
}

func NewPaycheckService(s store.Store) *PaycheckService {
	return &PaycheckService{store: s}
}

// Preview computes the paycheck from the user's settings without storing anything.
func (s *PaycheckService) Preview(ctx context.Context, userID string, hours, overtime decimal.Decimal) (core.Paycheck, error) {
	st, err := LoadSettings(ctx, s.store, userID)
	if err != nil {
		return core.Paycheck{}, err
	}
	in := PaycheckInput{Hours: hours, OvertimeHours: overtime, Settings: st}
	if err := in.Validate(); err != nil {
		return core.Paycheck{}, err
	}
	return CalculatePaycheck(in), nil
}

// Estimate computes the paycheck and records it as estimated income on payDate.
func (s *PaycheckService) Estimate(ctx context.Context, userID string, hours, overtime decimal.Decimal, payDate core.Date) (core.Paycheck, core.Transaction, error) {
	if err := payDate.Validate(); err != nil {
		return core.Paycheck{}, core.Transaction{}, err
	}
	pc, err := s.Preview(ctx, userID, hours, overtime)
	if err != nil {
		return core.Paycheck{}, core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      pc.NetPay,
		Date:        payDate,
		Description: estimateDescription,
		Category:    estimateCategory,
		Type:        core.Income,
		Status:      core.Estimated,
	}
	if err := s.store.InsertTransactions(ctx, []core.Transaction{tx}); err != nil {
		return pc, core.Transaction{}, fmt.Errorf("insert estimated paycheck: %w", err)
	}
	return pc, tx, nil
}
