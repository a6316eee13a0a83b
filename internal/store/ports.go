// Package store defines the record store ports used by the services.
package store

import (
	"context"
	"errors"

	"cashflow/internal/core"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// TransactionFilter narrows ListTransactions. Nil fields are ignored.
type TransactionFilter struct {
	UserID        string
	Type          *core.TransactionType
	Status        *core.TransactionStatus
	ExcludeStatus *core.TransactionStatus
	From          *core.Date
	To            *core.Date
	CategoryID    *string
	Reviewed      *bool
}

// Match reports whether tx satisfies the filter.
func (f TransactionFilter) Match(tx core.Transaction) bool {
	if f.UserID != "" && tx.UserID != f.UserID {
		return false
	}
	if f.Type != nil && tx.Type != *f.Type {
		return false
	}
	if f.Status != nil && tx.Status != *f.Status {
		return false
	}
	if f.ExcludeStatus != nil && tx.Status == *f.ExcludeStatus {
		return false
	}
	if f.From != nil && tx.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.Date.After(*f.To) {
		return false
	}
	if f.CategoryID != nil && tx.CategoryID != *f.CategoryID {
		return false
	}
	if f.Reviewed != nil && tx.Reviewed != *f.Reviewed {
		return false
	}
	return true
}

// MonthFilter selects every transaction of userID dated within m.
func MonthFilter(userID string, m core.Month) TransactionFilter {
	from, to := m.Start(), m.End()
	return TransactionFilter{UserID: userID, From: &from, To: &to}
}

// TransactionPatch carries the fields to change. Nil fields are left untouched.
type TransactionPatch struct {
	Amount      *core.Money
	Date        *core.Date
	Description *string
	Category    *string
	CategoryID  *string
	Type        *core.TransactionType
	Status      *core.TransactionStatus
	Reviewed    *bool
}

// Apply returns tx with the patch applied.
func (p TransactionPatch) Apply(tx core.Transaction) core.Transaction {
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.CategoryID != nil {
		tx.CategoryID = *p.CategoryID
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Status != nil {
		tx.Status = *p.Status
	}
	if p.Reviewed != nil {
		tx.Reviewed = *p.Reviewed
	}
	return tx
}

type (
	TransactionStore interface {
		// ListTransactions returns matches ordered by date, then insertion order.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		// InsertTransactions persists the batch as given, duplicates included.
		InsertTransactions(ctx context.Context, batch []core.Transaction) error
		// InsertMissingBySourceKey inserts the rows whose user and SourceKey
		// are not stored yet and returns them. Stored rows are left as they
		// are. Rows without a SourceKey are always inserted.
		InsertMissingBySourceKey(ctx context.Context, batch []core.Transaction) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, userID, id string, p TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
		SaveCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, userID, id string) error
	}

	SettingsStore interface {
		// GetSettings returns ErrNotFound when the user has none stored.
		GetSettings(ctx context.Context, userID string) (core.Settings, error)
		UpsertSettings(ctx context.Context, s core.Settings) error
	}

	TemplateStore interface {
		ListTemplates(ctx context.Context, userID string) ([]core.BillTemplate, error)
		SaveTemplate(ctx context.Context, t core.BillTemplate) (core.BillTemplate, error)
		DeleteTemplate(ctx context.Context, userID, id string) error
		// TemplateOwners lists users holding at least one template.
		TemplateOwners(ctx context.Context) ([]string, error)
	}

	Store interface {
		TransactionStore
		CategoryStore
		SettingsStore
		TemplateStore
		Close() error
	}
)
