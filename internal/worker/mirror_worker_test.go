package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
	"cashflow/internal/notify"
	"cashflow/internal/services"
	sheetsmem "cashflow/internal/sheets/memory"
	"cashflow/internal/store/memory"
)

func newTestWorker(t *testing.T) (*MirrorWorker, *memory.Store, *sheetsmem.Writer) {
	t.Helper()
	s := memory.New()
	svc := services.NewForecastService(s, services.ForecastConfig{})
	t.Cleanup(svc.Close)
	w := sheetsmem.New()
	mw := NewMirrorWorker(svc, w, MirrorConfig{FlushInterval: 10 * time.Millisecond})
	mw.now = func() time.Time { return time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC) }
	return mw, s, w
}

func TestMirrorWorker_FlushExportsDirtyUsersOnce(t *testing.T) {
	ctx := context.Background()
	mw, s, w := newTestWorker(t)

	_, err := s.SaveCategory(ctx, core.Category{UserID: "u1", Name: "Food", Type: core.Expense, Group: "Living", BudgetLimit: core.Money{Cents: 10000}})
	require.NoError(t, err)
	require.NoError(t, s.InsertTransactions(ctx, []core.Transaction{
		{UserID: "u1", Type: core.Expense, Status: core.Cleared, Amount: core.Money{Cents: 2500}, Date: core.NewDate(2024, 5, 3), Description: "groceries", Category: "Food"},
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, mw.HandleChange(ctx, notify.Event{Table: notify.TableTransactions, Op: notify.OpInsert, UserID: "u1"}))
	}
	assert.Equal(t, []string{"u1"}, mw.Pending())

	assert.Equal(t, 1, mw.Flush(ctx))
	assert.Equal(t, 1, w.Writes())
	assert.Empty(t, mw.Pending())

	rows := w.Rows("u1", core.NewMonth(2024, time.May))
	require.NotEmpty(t, rows)
	total := rows[len(rows)-1]
	assert.Equal(t, "Total", total[0])
	assert.Equal(t, "2024-05", total[1])

	// nothing dirty, nothing written
	assert.Equal(t, 0, mw.Flush(ctx))
	assert.Equal(t, 1, w.Writes())
}

func TestMirrorWorker_IgnoresEventsWithoutUser(t *testing.T) {
	mw, _, _ := newTestWorker(t)
	require.NoError(t, mw.HandleChange(context.Background(), notify.Event{Table: notify.TableSettings}))
	assert.Empty(t, mw.Pending())
}

type failingWriter struct{ calls int }

func (f *failingWriter) WriteBudget(context.Context, string, core.BudgetReport) (string, error) {
	f.calls++
	return "", errors.New("quota exceeded")
}

func TestMirrorWorker_FailedExportStaysDirty(t *testing.T) {
	ctx := context.Background()
	svc := services.NewForecastService(memory.New(), services.ForecastConfig{})
	defer svc.Close()
	fw := &failingWriter{}
	mw := NewMirrorWorker(svc, fw, MirrorConfig{})

	require.NoError(t, mw.HandleChange(ctx, notify.Event{Table: notify.TableCategories, UserID: "u2"}))
	assert.Equal(t, 0, mw.Flush(ctx))
	assert.Equal(t, 1, fw.calls)
	assert.Equal(t, []string{"u2"}, mw.Pending())
}

func TestMirrorWorker_StartStop(t *testing.T) {
	ctx := context.Background()
	mw, _, w := newTestWorker(t)

	require.NoError(t, mw.Start(ctx))
	assert.True(t, mw.IsRunning())
	assert.Error(t, mw.Start(ctx), "second start should fail")

	require.NoError(t, mw.HandleChange(ctx, notify.Event{Table: notify.TableTransactions, UserID: "u3"}))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, mw.Stop(stopCtx))
	assert.False(t, mw.IsRunning())

	// either a tick or the final flush on stop exported u3
	assert.Empty(t, mw.Pending())
	assert.GreaterOrEqual(t, w.Writes(), 1)
}

func TestNewMirrorWorker_DefaultInterval(t *testing.T) {
	mw := NewMirrorWorker(nil, nil, MirrorConfig{})
	assert.Equal(t, DefaultMirrorConfig().FlushInterval, mw.config.FlushInterval)
}
