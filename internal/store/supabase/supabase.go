// Package supabase stores records in a hosted Supabase project through
// its PostgREST endpoint. Amounts travel as numeric currency units, the
// way the hosted tables keep them.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	postgrest "github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

const (
	tableTransactions = "transactions"
	tableCategories   = "categories"
	tableSettings     = "settings"
	tableTemplates    = "bill_templates"

	returnRows = "representation"
)

var ascending = &postgrest.OrderOpts{Ascending: true}

type Store struct {
	client *supabase.Client
}

var _ store.Store = (*Store)(nil)

func New(url, key string) (*Store, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error { return nil }

type transactionRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	CategoryID  *string         `json:"category_id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Reviewed    bool            `json:"reviewed"`
	SourceKey   *string         `json:"source_key"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

type categoryRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Group       string          `json:"group"`
	BudgetLimit decimal.Decimal `json:"budget_limit"`
}

type settingsRow struct {
	UserID          string          `json:"user_id"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
	FixedDeductions decimal.Decimal `json:"fixed_deductions"`
	CustomPayday    *int            `json:"custom_payday"`
}

type templateRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DayOfMonth  int             `json:"day_of_month"`
	Category    string          `json:"category"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toTransactionRow(tx core.Transaction) transactionRow {
	row := transactionRow{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Amount:      tx.Amount.Decimal(),
		Date:        tx.Date.String(),
		Description: tx.Description,
		Category:    tx.Category,
		CategoryID:  optional(tx.CategoryID),
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		Reviewed:    tx.Reviewed,
		SourceKey:   optional(tx.SourceKey),
	}
	if !tx.CreatedAt.IsZero() {
		at := tx.CreatedAt.UTC()
		row.CreatedAt = &at
	}
	return row
}

func (r transactionRow) transaction() (core.Transaction, error) {
	// date columns come back as 2006-01-02, tolerate timestamps too
	raw := r.Date
	if len(raw) > len(time.DateOnly) {
		raw = raw[:len(time.DateOnly)]
	}
	date, err := core.ParseDate(raw)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	tx := core.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      core.MoneyFromDecimal(r.Amount.Abs()),
		Date:        date,
		Description: r.Description,
		Category:    r.Category,
		CategoryID:  deref(r.CategoryID),
		Type:        core.TransactionType(r.Type),
		Status:      core.TransactionStatus(r.Status),
		Reviewed:    r.Reviewed,
		SourceKey:   deref(r.SourceKey),
	}
	if r.CreatedAt != nil {
		tx.CreatedAt = *r.CreatedAt
	}
	return tx, nil
}

func decodeTransactions(data []byte) ([]core.Transaction, error) {
	var rows []transactionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.transaction()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// applyFilter translates f into PostgREST query parameters.
func applyFilter(q *postgrest.FilterBuilder, f store.TransactionFilter) *postgrest.FilterBuilder {
	if f.UserID != "" {
		q = q.Eq("user_id", f.UserID)
	}
	if f.Type != nil {
		q = q.Eq("type", string(*f.Type))
	}
	if f.Status != nil {
		q = q.Eq("status", string(*f.Status))
	}
	if f.ExcludeStatus != nil {
		q = q.Neq("status", string(*f.ExcludeStatus))
	}
	if f.From != nil {
		q = q.Gte("date", f.From.String())
	}
	if f.To != nil {
		q = q.Lte("date", f.To.String())
	}
	if f.CategoryID != nil {
		q = q.Eq("category_id", *f.CategoryID)
	}
	if f.Reviewed != nil {
		q = q.Eq("reviewed", strconv.FormatBool(*f.Reviewed))
	}
	return q
}

func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	q := applyFilter(s.client.From(tableTransactions).Select("*", "", false), f).
		Order("date", ascending).
		Order("created_at", ascending)
	data, _, err := q.Execute()
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return decodeTransactions(data)
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	data, _, err := s.client.From(tableTransactions).
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("id", id).
		Execute()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	txs, err := decodeTransactions(data)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	return txs[0], nil
}

// InsertTransactions sends the batch as one bulk insert request.
func (s *Store) InsertTransactions(ctx context.Context, batch []core.Transaction) error {
	if len(batch) == 0 {
		return nil
	}
	rows := make([]transactionRow, 0, len(batch))
	for _, tx := range batch {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		rows = append(rows, toTransactionRow(tx))
	}
	if _, _, err := s.client.From(tableTransactions).Insert(rows, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	return nil
}

// InsertMissingBySourceKey looks up the source keys already stored for each
// user, then bulk-inserts the rest. The lookup and the insert are separate
// requests, so two concurrent generators for one user can still race.
func (s *Store) InsertMissingBySourceKey(ctx context.Context, batch []core.Transaction) ([]core.Transaction, error) {
	keys := map[string][]string{}
	for _, tx := range batch {
		if tx.SourceKey != "" {
			keys[tx.UserID] = append(keys[tx.UserID], tx.SourceKey)
		}
	}
	stored := map[sourceKey]bool{}
	for userID, ks := range keys {
		data, _, err := s.client.From(tableTransactions).
			Select("source_key", "", false).
			Eq("user_id", userID).
			In("source_key", ks).
			Execute()
		if err != nil {
			return nil, fmt.Errorf("look up source keys: %w", err)
		}
		var rows []struct {
			SourceKey string `json:"source_key"`
		}
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode source keys: %w", err)
		}
		for _, r := range rows {
			stored[sourceKey{userID, r.SourceKey}] = true
		}
	}

	missing := missingBySourceKey(batch, stored)
	if err := s.InsertTransactions(ctx, missing); err != nil {
		return nil, err
	}
	return missing, nil
}

type sourceKey struct{ userID, key string }

// missingBySourceKey drops rows already stored and repeats within the batch.
// Every kept row gets an id.
func missingBySourceKey(batch []core.Transaction, stored map[sourceKey]bool) []core.Transaction {
	var out []core.Transaction
	seen := map[sourceKey]bool{}
	for _, tx := range batch {
		if tx.SourceKey != "" {
			k := sourceKey{tx.UserID, tx.SourceKey}
			if stored[k] || seen[k] {
				continue
			}
			seen[k] = true
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		out = append(out, tx)
	}
	return out
}

func patchColumns(p store.TransactionPatch) map[string]any {
	cols := map[string]any{}
	if p.Amount != nil {
		cols["amount"] = p.Amount.Decimal()
	}
	if p.Date != nil {
		cols["date"] = p.Date.String()
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.CategoryID != nil {
		cols["category_id"] = optional(*p.CategoryID)
	}
	if p.Type != nil {
		cols["type"] = string(*p.Type)
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Reviewed != nil {
		cols["reviewed"] = *p.Reviewed
	}
	return cols
}

func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, p store.TransactionPatch) (core.Transaction, error) {
	cols := patchColumns(p)
	if len(cols) == 0 {
		return s.GetTransaction(ctx, userID, id)
	}
	data, _, err := s.client.From(tableTransactions).
		Update(cols, returnRows, "").
		Eq("user_id", userID).
		Eq("id", id).
		Execute()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	txs, err := decodeTransactions(data)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	return txs[0], nil
}

// deleteOwned removes one row and reports ErrNotFound when nothing matched.
func (s *Store) deleteOwned(table, userID, id string) error {
	data, _, err := s.client.From(table).
		Delete(returnRows, "").
		Eq("user_id", userID).
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	var gone []json.RawMessage
	if err := json.Unmarshal(data, &gone); err != nil {
		return fmt.Errorf("decode delete from %s: %w", table, err)
	}
	if len(gone) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	return s.deleteOwned(tableTransactions, userID, id)
}

func (r categoryRow) category() core.Category {
	return core.Category{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Type:        core.TransactionType(r.Type),
		Group:       r.Group,
		BudgetLimit: core.MoneyFromDecimal(r.BudgetLimit),
	}
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	data, _, err := s.client.From(tableCategories).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("name", ascending).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var rows []categoryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.category())
	}
	return out, nil
}

func (s *Store) SaveCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row := categoryRow{
		ID:          c.ID,
		UserID:      c.UserID,
		Name:        c.Name,
		Type:        string(c.Type),
		Group:       c.Group,
		BudgetLimit: c.BudgetLimit.Decimal(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
		if _, _, err := s.client.From(tableCategories).Insert(row, false, "", "minimal", "").Execute(); err != nil {
			return core.Category{}, fmt.Errorf("insert category: %w", err)
		}
		return row.category(), nil
	}
	data, _, err := s.client.From(tableCategories).
		Update(row, returnRows, "").
		Eq("user_id", row.UserID).
		Eq("id", row.ID).
		Execute()
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	var rows []categoryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return core.Category{}, fmt.Errorf("decode category: %w", err)
	}
	if len(rows) == 0 {
		return core.Category{}, store.ErrNotFound
	}
	return rows[0].category(), nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	return s.deleteOwned(tableCategories, userID, id)
}

func (s *Store) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	data, _, err := s.client.From(tableSettings).
		Select("*", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	var rows []settingsRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return core.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if len(rows) == 0 {
		return core.Settings{}, store.ErrNotFound
	}
	r := rows[0]
	out := core.Settings{
		UserID:          r.UserID,
		HourlyRate:      core.MoneyFromDecimal(r.HourlyRate),
		TaxRatePercent:  r.TaxRatePercent,
		FixedDeductions: core.MoneyFromDecimal(r.FixedDeductions),
	}
	if r.CustomPayday != nil {
		out.CustomPayday = *r.CustomPayday
	}
	return out, nil
}

// UpsertSettings stores a zero custom payday as null.
func (s *Store) UpsertSettings(ctx context.Context, st core.Settings) error {
	row := settingsRow{
		UserID:          st.UserID,
		HourlyRate:      st.HourlyRate.Decimal(),
		TaxRatePercent:  st.TaxRatePercent,
		FixedDeductions: st.FixedDeductions.Decimal(),
	}
	if st.CustomPayday != 0 {
		day := st.CustomPayday
		row.CustomPayday = &day
	}
	if _, _, err := s.client.From(tableSettings).Insert(row, true, "user_id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (r templateRow) template() core.BillTemplate {
	return core.BillTemplate{
		ID:          r.ID,
		UserID:      r.UserID,
		Description: r.Description,
		Amount:      core.MoneyFromDecimal(r.Amount),
		DayOfMonth:  r.DayOfMonth,
		Category:    r.Category,
	}
}

func (s *Store) ListTemplates(ctx context.Context, userID string) ([]core.BillTemplate, error) {
	data, _, err := s.client.From(tableTemplates).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("day_of_month", ascending).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	var rows []templateRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	out := make([]core.BillTemplate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.template())
	}
	return out, nil
}

func (s *Store) SaveTemplate(ctx context.Context, t core.BillTemplate) (core.BillTemplate, error) {
	row := templateRow{
		ID:          t.ID,
		UserID:      t.UserID,
		Description: t.Description,
		Amount:      t.Amount.Decimal(),
		DayOfMonth:  t.DayOfMonth,
		Category:    t.Category,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
		if _, _, err := s.client.From(tableTemplates).Insert(row, false, "", "minimal", "").Execute(); err != nil {
			return core.BillTemplate{}, fmt.Errorf("insert template: %w", err)
		}
		return row.template(), nil
	}
	data, _, err := s.client.From(tableTemplates).
		Update(row, returnRows, "").
		Eq("user_id", row.UserID).
		Eq("id", row.ID).
		Execute()
	if err != nil {
		return core.BillTemplate{}, fmt.Errorf("update template: %w", err)
	}
	var rows []templateRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return core.BillTemplate{}, fmt.Errorf("decode template: %w", err)
	}
	if len(rows) == 0 {
		return core.BillTemplate{}, store.ErrNotFound
	}
	return rows[0].template(), nil
}

func (s *Store) DeleteTemplate(ctx context.Context, userID, id string) error {
	return s.deleteOwned(tableTemplates, userID, id)
}

func (s *Store) TemplateOwners(ctx context.Context) ([]string, error) {
	data, _, err := s.client.From(tableTemplates).
		Select("user_id", "", false).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list template owners: %w", err)
	}
	var rows []struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode template owners: %w", err)
	}
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, r := range rows {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			out = append(out, r.UserID)
		}
	}
	return out, nil
}
