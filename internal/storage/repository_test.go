package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "cashflow.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func bill(key string, cents int64) core.Transaction {
	return core.Transaction{
		UserID:      "u",
		Amount:      core.Money{Cents: cents},
		Date:        core.NewDate(2024, 4, 30),
		Description: "Rent",
		Category:    "Housing",
		Type:        core.Expense,
		Status:      core.Pending,
		SourceKey:   key,
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := bill("", 1250)
	in.CategoryID = "housing"
	if err := repo.InsertTransactions(ctx, []core.Transaction{in, bill("", 10)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := repo.ListTransactions(ctx, store.TransactionFilter{UserID: "u"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Amount.Cents != 1250 || got[0].CategoryID != "housing" || !got[0].Date.Equal(in.Date) {
		t.Fatalf("unexpected row: %+v", got[0])
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("id and created_at should be set: %+v", got[0])
	}
}

func TestFilteredList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	early := bill("", 1)
	early.Date = core.NewDate(2024, 3, 1)
	income := bill("", 2)
	income.Type = core.Income
	if err := repo.InsertTransactions(ctx, []core.Transaction{early, bill("", 3), income}); err != nil {
		t.Fatal(err)
	}

	f := store.MonthFilter("u", core.NewMonth(2024, 4))
	exp := core.Expense
	f.Type = &exp
	got, err := repo.ListTransactions(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Amount.Cents != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestInsertMissingBySourceKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	inserted, err := repo.InsertMissingBySourceKey(ctx, []core.Transaction{bill("rent@2024-04", 100)})
	if err != nil {
		t.Fatal(err)
	}
	if len(inserted) != 1 || inserted[0].ID == "" {
		t.Fatalf("first run inserted %+v", inserted)
	}
	cleared := core.Cleared
	if _, err := repo.UpdateTransaction(ctx, "u", inserted[0].ID, store.TransactionPatch{Status: &cleared}); err != nil {
		t.Fatal(err)
	}

	inserted, err = repo.InsertMissingBySourceKey(ctx, []core.Transaction{bill("rent@2024-04", 200), bill("gym@2024-04", 30)})
	if err != nil {
		t.Fatal(err)
	}
	if len(inserted) != 1 || inserted[0].SourceKey != "gym@2024-04" {
		t.Fatalf("rerun inserted %+v, want only the gym bill", inserted)
	}

	got, _ := repo.ListTransactions(ctx, store.TransactionFilter{UserID: "u"})
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %+v", got)
	}
	for _, tx := range got {
		if tx.SourceKey == "rent@2024-04" && (tx.Status != core.Cleared || tx.Amount.Cents != 100) {
			t.Errorf("stored rent bill was rewritten: %+v", tx)
		}
	}
}

func TestUpdateDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cleared := core.Cleared
	if _, err := repo.UpdateTransaction(ctx, "u", "missing", store.TransactionPatch{Status: &cleared}); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u", "missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.InsertTransactions(ctx, []core.Transaction{bill("", 5)}); err != nil {
		t.Fatal(err)
	}
	rows, _ := repo.ListTransactions(ctx, store.TransactionFilter{UserID: "u"})
	updated, err := repo.UpdateTransaction(ctx, "u", rows[0].ID, store.TransactionPatch{Status: &cleared})
	if err != nil || updated.Status != core.Cleared {
		t.Fatalf("update: %+v %v", updated, err)
	}
}

func TestSettingsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.GetSettings(ctx, "u"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	in := core.Settings{UserID: "u", HourlyRate: core.Money{Cents: 2500}, TaxRatePercent: decimal.RequireFromString("22.5")}
	if err := repo.UpsertSettings(ctx, in); err != nil {
		t.Fatal(err)
	}
	in.CustomPayday = 15
	if err := repo.UpsertSettings(ctx, in); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetSettings(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if got.CustomPayday != 15 || got.HourlyRate.Cents != 2500 || got.TaxRatePercent.String() != "22.5" {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestCategoriesAndTemplates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c, err := repo.SaveCategory(ctx, core.Category{UserID: "u", Name: "Food", Type: core.Expense, Group: "Living", BudgetLimit: core.Money{Cents: 30000}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveCategory(ctx, core.Category{ID: c.ID, UserID: "intruder", Name: "X", Type: core.Expense}); err != store.ErrNotFound {
		t.Fatalf("foreign update should fail, got %v", err)
	}
	cats, _ := repo.ListCategories(ctx, "u")
	if len(cats) != 1 || cats[0].Name != "Food" || cats[0].BudgetLimit.Cents != 30000 {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	tpl, err := repo.SaveTemplate(ctx, core.BillTemplate{UserID: "u", Description: "Rent", Amount: core.Money{Cents: 95000}, DayOfMonth: 31})
	if err != nil {
		t.Fatal(err)
	}
	owners, _ := repo.TemplateOwners(ctx)
	if len(owners) != 1 || owners[0] != "u" {
		t.Fatalf("unexpected owners: %v", owners)
	}
	if err := repo.DeleteTemplate(ctx, "u", tpl.ID); err != nil {
		t.Fatal(err)
	}
	tpls, _ := repo.ListTemplates(ctx, "u")
	if len(tpls) != 0 {
		t.Fatalf("expected no templates, got %d", len(tpls))
	}
}
