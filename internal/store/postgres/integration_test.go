//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

// Integration tests require a reachable PostgreSQL database
// Run with: POSTGRES_TEST_DSN=... go test -tags=integration ./internal/store/postgres

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, "it-" + uuid.NewString()
}

func TestIntegration_TransactionsLifecycle(t *testing.T) {
	s, user := openTestStore(t)
	ctx := context.Background()

	bill := core.Transaction{
		UserID: user, Amount: core.Money{Cents: 7500}, Date: core.NewDate(2024, 4, 30),
		Description: "Rent", Category: "Housing", Type: core.Expense, Status: core.Pending,
		SourceKey: "rent@2024-04",
	}
	inserted, err := s.InsertMissingBySourceKey(ctx, []core.Transaction{bill})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	bill.Amount = core.Money{Cents: 8000}
	inserted, err = s.InsertMissingBySourceKey(ctx, []core.Transaction{bill})
	require.NoError(t, err)
	assert.Empty(t, inserted)

	got, err := s.ListTransactions(ctx, store.TransactionFilter{UserID: user})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7500), got[0].Amount.Cents)
	assert.True(t, got[0].Date.Equal(core.NewDate(2024, 4, 30)))

	cleared := core.Cleared
	updated, err := s.UpdateTransaction(ctx, user, got[0].ID, store.TransactionPatch{Status: &cleared})
	require.NoError(t, err)
	assert.Equal(t, core.Cleared, updated.Status)

	require.NoError(t, s.DeleteTransaction(ctx, user, got[0].ID))
	_, err = s.GetTransaction(ctx, user, got[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIntegration_Settings(t *testing.T) {
	s, user := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetSettings(ctx, user)
	assert.ErrorIs(t, err, store.ErrNotFound)

	in := core.Settings{UserID: user, HourlyRate: core.Money{Cents: 2000}, TaxRatePercent: decimal.RequireFromString("18.5"), CustomPayday: 28}
	require.NoError(t, s.UpsertSettings(ctx, in))
	got, err := s.GetSettings(ctx, user)
	require.NoError(t, err)
	assert.True(t, in.TaxRatePercent.Equal(got.TaxRatePercent))
	assert.Equal(t, 28, got.CustomPayday)
}
