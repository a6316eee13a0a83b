// Package memory keeps mirrored budgets in process, for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"cashflow/internal/core"
	ports "cashflow/internal/sheets"
)

type Writer struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

var _ ports.BudgetWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{tabs: map[string][][]any{}}
}

// WriteBudget replaces the tab contents and returns a synthetic reference.
func (w *Writer) WriteBudget(_ context.Context, userID string, report core.BudgetReport) (string, error) {
	if err := report.Month.Validate(); err != nil {
		return "", err
	}
	tab := ports.TabName("Budget", userID, report.Month)
	rows := ports.BudgetRows(report)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tabs[tab] = rows
	w.writes++
	return fmt.Sprintf("mem:%s!A1:G%d", tab, len(rows)), nil
}

// Rows returns a copy of the rows last written for userID and m.
func (w *Writer) Rows(userID string, m core.Month) [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]any(nil), w.tabs[ports.TabName("Budget", userID, m)]...)
}

// Writes counts WriteBudget calls.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
