// Package adapters decorates record stores with change notification.
package adapters

import (
	"context"
	"log/slog"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/notify"
	"cashflow/internal/store"
)

// NotifyingStore publishes a notify.Event after every successful write.
// Publish failures are logged and never fail the write.
type NotifyingStore struct {
	store.Store
	publishers []notify.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

var _ store.Store = (*NotifyingStore)(nil)

// NewNotifyingStore wraps s. Nil publishers are skipped.
func NewNotifyingStore(s store.Store, logger *slog.Logger, publishers ...notify.Publisher) *NotifyingStore {
	if logger == nil {
		logger = slog.Default()
	}
	var pubs []notify.Publisher
	for _, p := range publishers {
		if p != nil {
			pubs = append(pubs, p)
		}
	}
	return &NotifyingStore{Store: s, publishers: pubs, logger: logger, now: time.Now}
}

func (n *NotifyingStore) emit(ctx context.Context, table, op, userID, id string) {
	e := notify.Event{Table: table, Op: op, UserID: userID, ID: id, At: n.now()}
	for _, p := range n.publishers {
		if err := p.Publish(ctx, e); err != nil {
			n.logger.WarnContext(ctx, "Failed to publish change event",
				"table", table,
				"op", op,
				"user_id", userID,
				"error", err)
		}
	}
}

// emitBatch sends one event per user touched by the batch.
func (n *NotifyingStore) emitBatch(ctx context.Context, op string, batch []core.Transaction) {
	seen := make(map[string]bool)
	for _, tx := range batch {
		if seen[tx.UserID] {
			continue
		}
		seen[tx.UserID] = true
		n.emit(ctx, notify.TableTransactions, op, tx.UserID, "")
	}
}

func (n *NotifyingStore) InsertTransactions(ctx context.Context, batch []core.Transaction) error {
	if err := n.Store.InsertTransactions(ctx, batch); err != nil {
		return err
	}
	n.emitBatch(ctx, notify.OpInsert, batch)
	return nil
}

// InsertMissingBySourceKey announces only the rows that were written.
func (n *NotifyingStore) InsertMissingBySourceKey(ctx context.Context, batch []core.Transaction) ([]core.Transaction, error) {
	inserted, err := n.Store.InsertMissingBySourceKey(ctx, batch)
	if err != nil {
		return nil, err
	}
	n.emitBatch(ctx, notify.OpInsert, inserted)
	return inserted, nil
}

func (n *NotifyingStore) UpdateTransaction(ctx context.Context, userID, id string, p store.TransactionPatch) (core.Transaction, error) {
	tx, err := n.Store.UpdateTransaction(ctx, userID, id, p)
	if err != nil {
		return tx, err
	}
	n.emit(ctx, notify.TableTransactions, notify.OpUpdate, userID, id)
	return tx, nil
}

func (n *NotifyingStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := n.Store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	n.emit(ctx, notify.TableTransactions, notify.OpDelete, userID, id)
	return nil
}

func (n *NotifyingStore) SaveCategory(ctx context.Context, c core.Category) (core.Category, error) {
	op := notify.OpUpdate
	if c.ID == "" {
		op = notify.OpInsert
	}
	saved, err := n.Store.SaveCategory(ctx, c)
	if err != nil {
		return saved, err
	}
	n.emit(ctx, notify.TableCategories, op, saved.UserID, saved.ID)
	return saved, nil
}

func (n *NotifyingStore) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := n.Store.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	n.emit(ctx, notify.TableCategories, notify.OpDelete, userID, id)
	return nil
}

func (n *NotifyingStore) UpsertSettings(ctx context.Context, s core.Settings) error {
	if err := n.Store.UpsertSettings(ctx, s); err != nil {
		return err
	}
	n.emit(ctx, notify.TableSettings, notify.OpUpdate, s.UserID, "")
	return nil
}

func (n *NotifyingStore) SaveTemplate(ctx context.Context, t core.BillTemplate) (core.BillTemplate, error) {
	op := notify.OpUpdate
	if t.ID == "" {
		op = notify.OpInsert
	}
	saved, err := n.Store.SaveTemplate(ctx, t)
	if err != nil {
		return saved, err
	}
	n.emit(ctx, notify.TableTemplates, op, saved.UserID, saved.ID)
	return saved, nil
}

func (n *NotifyingStore) DeleteTemplate(ctx context.Context, userID, id string) error {
	if err := n.Store.DeleteTemplate(ctx, userID, id); err != nil {
		return err
	}
	n.emit(ctx, notify.TableTemplates, notify.OpDelete, userID, id)
	return nil
}
