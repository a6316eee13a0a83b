package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

// SourceKey is the idempotency key of a template instance in a month.
func SourceKey(templateID string, m core.Month) string {
	return templateID + "@" + m.String()
}

// GenerateBills expands templates into pending expenses for month m.
// The day of month is clamped to the month's length.
func GenerateBills(templates []core.BillTemplate, m core.Month, userID string) []core.Transaction {
	out := make([]core.Transaction, 0, len(templates))
	for _, t := range templates {
		out = append(out, core.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      t.Amount,
			Date:        m.Day(t.DayOfMonth),
			Description: t.Description,
			Category:    t.Category,
			Type:        core.Expense,
			Status:      core.Pending,
			SourceKey:   SourceKey(t.ID, m),
		})
	}
	return out
}

// GenerateOptions controls persistence of a generation run.
type GenerateOptions struct {
	// Idempotent writes only the bills whose template and month are not
	// stored yet. Stored bills keep their status, date and edits.
	Idempotent bool
}

// BillService persists generated bills in a single batch.
type BillService struct {
	templates store.TemplateStore
	txs       store.TransactionStore
}

func NewBillService(templates store.TemplateStore, txs store.TransactionStore) *BillService {
	return &BillService{templates: templates, txs: txs}
}

// Generate loads the user's templates and persists one bill per template.
func (s *BillService) Generate(ctx context.Context, userID string, m core.Month, opts GenerateOptions) (core.GenerationResult, error) {
	if err := m.Validate(); err != nil {
		return core.GenerationResult{}, err
	}
	templates, err := s.templates.ListTemplates(ctx, userID)
	if err != nil {
		return core.GenerationResult{}, fmt.Errorf("list templates: %w", err)
	}
	return s.GenerateFrom(ctx, userID, templates, m, opts)
}

// GenerateFrom persists bills for an explicit template list.
func (s *BillService) GenerateFrom(ctx context.Context, userID string, templates []core.BillTemplate, m core.Month, opts GenerateOptions) (core.GenerationResult, error) {
	res := core.GenerationResult{Month: m, Idempotent: opts.Idempotent}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return res, fmt.Errorf("template %q: %w", t.Description, err)
		}
	}
	bills := GenerateBills(templates, m, userID)
	if len(bills) == 0 {
		return res, nil
	}

	if opts.Idempotent {
		written, err := s.txs.InsertMissingBySourceKey(ctx, bills)
		if err != nil {
			return res, fmt.Errorf("insert missing bills: %w", err)
		}
		res.Skipped = len(bills) - len(written)
		bills = written
	} else if err := s.txs.InsertTransactions(ctx, bills); err != nil {
		return res, fmt.Errorf("insert bills: %w", err)
	}

	res.Count = len(bills)
	res.Transactions = bills
	slog.InfoContext(ctx, "Generated bills",
		"user_id", userID,
		"month", m.String(),
		"count", res.Count,
		"skipped", res.Skipped,
		"idempotent", opts.Idempotent)
	return res, nil
}
