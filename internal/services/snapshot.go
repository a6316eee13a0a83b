package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

// Snapshot is a read-only view of one user's records.
type Snapshot struct {
	Transactions []core.Transaction
	Categories   []core.Category
	Settings     core.Settings
}

// SnapshotLoader reads the records the engine needs, in parallel.
type SnapshotLoader struct {
	store store.Store
}

func NewSnapshotLoader(s store.Store) *SnapshotLoader {
	return &SnapshotLoader{store: s}
}

// Load fetches transactions matching f plus the user's categories and settings.
// Missing settings resolve to defaults.
func (l *SnapshotLoader) Load(ctx context.Context, userID string, f store.TransactionFilter) (Snapshot, error) {
	f.UserID = userID
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := l.store.ListTransactions(gctx, f)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		cats, err := l.store.ListCategories(gctx, userID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		snap.Categories = cats
		return nil
	})
	g.Go(func() error {
		st, err := LoadSettings(gctx, l.store, userID)
		if err != nil {
			return err
		}
		snap.Settings = st
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// LoadSettings returns stored settings or defaults when none exist.
func LoadSettings(ctx context.Context, s store.SettingsStore, userID string) (core.Settings, error) {
	st, err := s.GetSettings(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return core.DefaultSettings(userID), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return st, nil
}
