package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

var ErrRescheduleIncome = errors.New("only expenses can be rescheduled")

// TransactionService validates and applies user edits to transactions.
type TransactionService struct {
	store store.Store
}

func NewTransactionService(s store.Store) *TransactionService {
	return &TransactionService{store: s}
}

func (s *TransactionService) List(ctx context.Context, userID string, f store.TransactionFilter) ([]core.Transaction, error) {
	f.UserID = userID
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Inbox returns the user's unreviewed transactions, newest first.
func (s *TransactionService) Inbox(ctx context.Context, userID string) ([]core.Transaction, error) {
	reviewed := false
	txs, err := s.List(ctx, userID, store.TransactionFilter{Reviewed: &reviewed})
	if err != nil {
		return nil, err
	}
	return ReviewInbox(txs), nil
}

// Create validates a user-entered transaction and stores it.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Status == "" {
		tx.Status = core.Cleared
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	if err := tx.ValidateEntry(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkCategory(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.InsertTransactions(ctx, []core.Transaction{tx}); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// Update applies p after validating the resulting transaction.
func (s *TransactionService) Update(ctx context.Context, userID, id string, p store.TransactionPatch) (core.Transaction, error) {
	cur, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	next := p.Apply(cur)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return core.Transaction{}, err
		}
	}
	if p.CategoryID != nil || p.Type != nil {
		if err := s.checkCategory(ctx, next); err != nil {
			return core.Transaction{}, err
		}
	}
	updated, err := s.store.UpdateTransaction(ctx, userID, id, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

// MarkPaid moves a pending or estimated transaction to cleared.
func (s *TransactionService) MarkPaid(ctx context.Context, userID, id string) (core.Transaction, error) {
	cleared := core.Cleared
	return s.patch(ctx, userID, id, store.TransactionPatch{Status: &cleared})
}

func (s *TransactionService) MarkReviewed(ctx context.Context, userID, id string) (core.Transaction, error) {
	reviewed := true
	return s.patch(ctx, userID, id, store.TransactionPatch{Reviewed: &reviewed})
}

// Reschedule moves an expense to another date. Income cannot be moved.
func (s *TransactionService) Reschedule(ctx context.Context, userID, id string, to core.Date) (core.Transaction, error) {
	if err := to.Validate(); err != nil {
		return core.Transaction{}, err
	}
	cur, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	if cur.Type != core.Expense {
		return core.Transaction{}, ErrRescheduleIncome
	}
	return s.patch(ctx, userID, id, store.TransactionPatch{Date: &to})
}

func (s *TransactionService) patch(ctx context.Context, userID, id string, p store.TransactionPatch) (core.Transaction, error) {
	tx, err := s.store.UpdateTransaction(ctx, userID, id, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	return tx, nil
}

func (s *TransactionService) checkCategory(ctx context.Context, tx core.Transaction) error {
	if tx.CategoryID == "" {
		return nil
	}
	cats, err := s.store.ListCategories(ctx, tx.UserID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.ID == tx.CategoryID {
			return c.Allows(tx)
		}
	}
	return fmt.Errorf("category %s: %w", tx.CategoryID, store.ErrNotFound)
}
