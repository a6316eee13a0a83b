// Package storage is the SQLite record store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/store"

	_ "modernc.org/sqlite"
)

const txColumns = "id, user_id, amount_cents, date, description, category, category_id, type, status, reviewed, source_key, created_at"

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	where, args := f.Where(store.QuestionDialect, 0)
	rows, err := r.db.QueryContext(ctx, "SELECT "+txColumns+" FROM transactions"+where+" ORDER BY date, rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+txColumns+" FROM transactions WHERE user_id = ? AND id = ?", userID, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, err
}

// InsertTransactions writes the batch in one SQL transaction.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, batch []core.Transaction) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range batch {
			if err := insertTransaction(ctx, tx, t); err != nil {
				return err
			}
		}
		slog.DebugContext(ctx, "Transactions saved to SQLite", "count", len(batch))
		return nil
	})
}

func (r *SQLiteRepository) InsertMissingBySourceKey(ctx context.Context, batch []core.Transaction) ([]core.Transaction, error) {
	var inserted []core.Transaction
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range batch {
			if t.SourceKey != "" {
				var one int
				err := tx.QueryRowContext(ctx, "SELECT 1 FROM transactions WHERE user_id = ? AND source_key = ? LIMIT 1",
					t.UserID, t.SourceKey).Scan(&one)
				if err == nil {
					continue
				}
				if !errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("look up source key %s: %w", t.SourceKey, err)
				}
			}
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if err := insertTransaction(ctx, tx, t); err != nil {
				return err
			}
			inserted = append(inserted, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, p store.TransactionPatch) (core.Transaction, error) {
	set, args := p.Set(store.QuestionDialect, 0)
	if set != "" {
		args = append(args, userID, id)
		res, err := r.db.ExecContext(ctx, "UPDATE transactions SET "+set+" WHERE user_id = ? AND id = ?", args...)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.Transaction{}, store.ErrNotFound
		}
	}
	return r.GetTransaction(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	return r.execOne(ctx, "DELETE FROM transactions WHERE user_id = ? AND id = ?", userID, id)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, name, type, group_name, budget_limit_cents
		FROM categories WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c     core.Category
			typ   string
			limit int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Group, &limit); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		c.BudgetLimit = core.Money{Cents: limit}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (id, user_id, name, type, group_name, budget_limit_cents)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type,
			group_name = excluded.group_name, budget_limit_cents = excluded.budget_limit_cents
		WHERE categories.user_id = excluded.user_id`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Group, c.BudgetLimit.Cents)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	return r.execOne(ctx, "DELETE FROM categories WHERE user_id = ? AND id = ?", userID, id)
}

func (r *SQLiteRepository) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	var (
		s      = core.Settings{UserID: userID}
		rate   int64
		tax    string
		ded    int64
		payday sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `SELECT hourly_rate_cents, tax_rate_percent, fixed_deductions_cents, custom_payday
		FROM settings WHERE user_id = ?`, userID).Scan(&rate, &tax, &ded, &payday)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, store.ErrNotFound
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	if s.TaxRatePercent, err = decimal.NewFromString(tax); err != nil {
		return core.Settings{}, fmt.Errorf("parse tax rate %q: %w", tax, err)
	}
	s.HourlyRate = core.Money{Cents: rate}
	s.FixedDeductions = core.Money{Cents: ded}
	s.CustomPayday = int(payday.Int64)
	return s, nil
}

// UpsertSettings stores s; a zero CustomPayday is stored as NULL.
func (r *SQLiteRepository) UpsertSettings(ctx context.Context, s core.Settings) error {
	var payday any
	if s.CustomPayday > 0 {
		payday = s.CustomPayday
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO settings (user_id, hourly_rate_cents, tax_rate_percent, fixed_deductions_cents, custom_payday)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET hourly_rate_cents = excluded.hourly_rate_cents,
			tax_rate_percent = excluded.tax_rate_percent,
			fixed_deductions_cents = excluded.fixed_deductions_cents,
			custom_payday = excluded.custom_payday`,
		s.UserID, s.HourlyRate.Cents, s.TaxRatePercent.String(), s.FixedDeductions.Cents, payday)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context, userID string) ([]core.BillTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, description, amount_cents, day_of_month, category
		FROM bill_templates WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []core.BillTemplate
	for rows.Next() {
		var (
			t      core.BillTemplate
			amount int64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &amount, &t.DayOfMonth, &t.Category); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Amount = core.Money{Cents: amount}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveTemplate(ctx context.Context, t core.BillTemplate) (core.BillTemplate, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO bill_templates (id, user_id, description, amount_cents, day_of_month, category)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET description = excluded.description, amount_cents = excluded.amount_cents,
			day_of_month = excluded.day_of_month, category = excluded.category
		WHERE bill_templates.user_id = excluded.user_id`,
		t.ID, t.UserID, t.Description, t.Amount.Cents, t.DayOfMonth, t.Category)
	if err != nil {
		return core.BillTemplate{}, fmt.Errorf("save template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.BillTemplate{}, store.ErrNotFound
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, userID, id string) error {
	return r.execOne(ctx, "DELETE FROM bill_templates WHERE user_id = ? AND id = ?", userID, id)
}

func (r *SQLiteRepository) TemplateOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM bill_templates ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("query template owners: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan template owner: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, "INSERT INTO transactions ("+txColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.UserID, t.Amount.Cents, t.Date.String(), t.Description, t.Category,
		store.NullIfEmpty(t.CategoryID), string(t.Type), string(t.Status), t.Reviewed,
		store.NullIfEmpty(t.SourceKey), t.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		amount     int64
		date       string
		categoryID sql.NullString
		typ        string
		status     string
		sourceKey  sql.NullString
		createdAt  string
	)
	err := s.Scan(&t.ID, &t.UserID, &amount, &date, &t.Description, &t.Category, &categoryID,
		&typ, &status, &t.Reviewed, &sourceKey, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	t.Amount = core.Money{Cents: amount}
	t.CategoryID = categoryID.String
	t.Type = core.TransactionType(typ)
	t.Status = core.TransactionStatus(status)
	t.SourceKey = sourceKey.String
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return t, nil
}
