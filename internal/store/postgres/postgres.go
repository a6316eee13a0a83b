// Package postgres is the PostgreSQL record store built on a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

const txColumns = "id, user_id, amount_cents, date, description, category, category_id, type, status, reviewed, source_key, created_at"

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New migrates the schema and opens a connection pool.
func New(ctx context.Context, dsn string) (*Store, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	where, args := f.Where(store.DollarDialect, 0)
	rows, err := s.pool.Query(ctx, "SELECT "+txColumns+" FROM transactions"+where+" ORDER BY date, seq", args...)
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

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+txColumns+" FROM transactions WHERE user_id = $1 AND id = $2", userID, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, err
}

// InsertTransactions sends the batch in one database transaction.
func (s *Store) InsertTransactions(ctx context.Context, batch []core.Transaction) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, t := range batch {
			queueInsert(b, t)
		}
		return tx.SendBatch(ctx, b).Close()
	})
}

// InsertMissingBySourceKey holds a per-user advisory lock for the
// transaction so concurrent generators cannot both insert the same key.
func (s *Store) InsertMissingBySourceKey(ctx context.Context, batch []core.Transaction) ([]core.Transaction, error) {
	var inserted []core.Transaction
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		locked := map[string]bool{}
		for _, t := range batch {
			if t.SourceKey != "" {
				if !locked[t.UserID] {
					if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", t.UserID); err != nil {
						return fmt.Errorf("lock bills of %s: %w", t.UserID, err)
					}
					locked[t.UserID] = true
				}
				var exists bool
				if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM transactions WHERE user_id = $1 AND source_key = $2)",
					t.UserID, t.SourceKey).Scan(&exists); err != nil {
					return fmt.Errorf("look up source key %s: %w", t.SourceKey, err)
				}
				if exists {
					continue
				}
			}
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			b := &pgx.Batch{}
			queueInsert(b, t)
			if err := tx.SendBatch(ctx, b).Close(); err != nil {
				return fmt.Errorf("insert transaction %s: %w", t.ID, err)
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

func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, p store.TransactionPatch) (core.Transaction, error) {
	set, args := p.Set(store.DollarDialect, 0)
	if set == "" {
		return s.GetTransaction(ctx, userID, id)
	}
	n := len(args)
	args = append(args, userID, id)
	row := s.pool.QueryRow(ctx, fmt.Sprintf("UPDATE transactions SET %s WHERE user_id = $%d AND id = $%d RETURNING %s",
		set, n+1, n+2, txColumns), args...)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, err
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	return s.execOne(ctx, "DELETE FROM transactions WHERE user_id = $1 AND id = $2", userID, id)
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_id, name, type, group_name, budget_limit_cents
		FROM categories WHERE user_id = $1 ORDER BY seq`, userID)
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

func (s *Store) SaveCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tag, err := s.pool.Exec(ctx, `INSERT INTO categories (id, user_id, name, type, group_name, budget_limit_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type,
			group_name = EXCLUDED.group_name, budget_limit_cents = EXCLUDED.budget_limit_cents
		WHERE categories.user_id = EXCLUDED.user_id`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Group, c.BudgetLimit.Cents)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	return s.execOne(ctx, "DELETE FROM categories WHERE user_id = $1 AND id = $2", userID, id)
}

func (s *Store) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	var (
		st     = core.Settings{UserID: userID}
		rate   int64
		tax    string
		ded    int64
		payday *int32
	)
	err := s.pool.QueryRow(ctx, `SELECT hourly_rate_cents, tax_rate_percent::text, fixed_deductions_cents, custom_payday
		FROM settings WHERE user_id = $1`, userID).Scan(&rate, &tax, &ded, &payday)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Settings{}, store.ErrNotFound
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	if st.TaxRatePercent, err = decimal.NewFromString(tax); err != nil {
		return core.Settings{}, fmt.Errorf("parse tax rate %q: %w", tax, err)
	}
	st.HourlyRate = core.Money{Cents: rate}
	st.FixedDeductions = core.Money{Cents: ded}
	if payday != nil {
		st.CustomPayday = int(*payday)
	}
	return st, nil
}

func (s *Store) UpsertSettings(ctx context.Context, st core.Settings) error {
	var payday *int32
	if st.CustomPayday > 0 {
		p := int32(st.CustomPayday)
		payday = &p
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO settings (user_id, hourly_rate_cents, tax_rate_percent, fixed_deductions_cents, custom_payday)
		VALUES ($1, $2, $3::numeric, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET hourly_rate_cents = EXCLUDED.hourly_rate_cents,
			tax_rate_percent = EXCLUDED.tax_rate_percent,
			fixed_deductions_cents = EXCLUDED.fixed_deductions_cents,
			custom_payday = EXCLUDED.custom_payday`,
		st.UserID, st.HourlyRate.Cents, st.TaxRatePercent.String(), st.FixedDeductions.Cents, payday)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (s *Store) ListTemplates(ctx context.Context, userID string) ([]core.BillTemplate, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_id, description, amount_cents, day_of_month, category
		FROM bill_templates WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []core.BillTemplate
	for rows.Next() {
		var (
			t      core.BillTemplate
			amount int64
			day    int32
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &amount, &day, &t.Category); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Amount = core.Money{Cents: amount}
		t.DayOfMonth = int(day)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SaveTemplate(ctx context.Context, t core.BillTemplate) (core.BillTemplate, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	tag, err := s.pool.Exec(ctx, `INSERT INTO bill_templates (id, user_id, description, amount_cents, day_of_month, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET description = EXCLUDED.description, amount_cents = EXCLUDED.amount_cents,
			day_of_month = EXCLUDED.day_of_month, category = EXCLUDED.category
		WHERE bill_templates.user_id = EXCLUDED.user_id`,
		t.ID, t.UserID, t.Description, t.Amount.Cents, t.DayOfMonth, t.Category)
	if err != nil {
		return core.BillTemplate{}, fmt.Errorf("save template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.BillTemplate{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, userID, id string) error {
	return s.execOne(ctx, "DELETE FROM bill_templates WHERE user_id = $1 AND id = $2", userID, id)
}

func (s *Store) TemplateOwners(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT user_id FROM bill_templates ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("query template owners: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect template owners: %w", err)
	}
	return owners, nil
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func queueInsert(b *pgx.Batch, t core.Transaction) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	b.Queue("INSERT INTO transactions ("+txColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		t.ID, t.UserID, t.Amount.Cents, t.Date.Time, t.Description, t.Category,
		store.NullIfEmpty(t.CategoryID), string(t.Type), string(t.Status), t.Reviewed,
		store.NullIfEmpty(t.SourceKey), t.CreatedAt)
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t          core.Transaction
		amount     int64
		date       time.Time
		categoryID *string
		typ        string
		status     string
		sourceKey  *string
	)
	err := row.Scan(&t.ID, &t.UserID, &amount, &date, &t.Description, &t.Category, &categoryID,
		&typ, &status, &t.Reviewed, &sourceKey, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	y, m, d := date.Date()
	t.Date = core.NewDate(y, int(m), d)
	t.Amount = core.Money{Cents: amount}
	t.Type = core.TransactionType(typ)
	t.Status = core.TransactionStatus(status)
	if categoryID != nil {
		t.CategoryID = *categoryID
	}
	if sourceKey != nil {
		t.SourceKey = *sourceKey
	}
	return t, nil
}
