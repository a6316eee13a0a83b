// Package worker hosts the background loops fed by change events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/notify"
	"cashflow/internal/sheets"
)

// BudgetSource computes budget reports and forgets cached ones on change.
type BudgetSource interface {
	Budget(ctx context.Context, userID string, m core.Month) (core.BudgetReport, error)
	Invalidate(e notify.Event)
}

// MirrorConfig holds configuration for the mirror worker
type MirrorConfig struct {
	// FlushInterval is how often dirty users are exported (default: 10s)
	FlushInterval time.Duration
}

func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{FlushInterval: 10 * time.Second}
}

// MirrorWorker keeps a spreadsheet copy of each user's current month budget.
// Change events only mark users dirty; a flush exports each dirty user once,
// so a burst of writes costs one spreadsheet update.
type MirrorWorker struct {
	source BudgetSource
	writer sheets.BudgetWriter
	config MirrorConfig
	now    func() time.Time

	dirtyMu sync.Mutex
	dirty   map[string]bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorWorker(source BudgetSource, writer sheets.BudgetWriter, config MirrorConfig) *MirrorWorker {
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultMirrorConfig().FlushInterval
	}
	return &MirrorWorker{
		source: source,
		writer: writer,
		config: config,
		now:    time.Now,
		dirty:  make(map[string]bool),
	}
}

// HandleChange is the AMQP consumer callback.
func (w *MirrorWorker) HandleChange(ctx context.Context, e notify.Event) error {
	w.source.Invalidate(e)
	if e.UserID == "" {
		return nil
	}
	w.dirtyMu.Lock()
	w.dirty[e.UserID] = true
	w.dirtyMu.Unlock()
	slog.DebugContext(ctx, "Marked budget mirror dirty", "user_id", e.UserID, "table", e.Table)
	return nil
}

// Pending lists users waiting for export, sorted.
func (w *MirrorWorker) Pending() []string {
	w.dirtyMu.Lock()
	defer w.dirtyMu.Unlock()
	out := make([]string, 0, len(w.dirty))
	for u := range w.dirty {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Export writes the current month's budget of userID.
func (w *MirrorWorker) Export(ctx context.Context, userID string) (string, error) {
	m := core.MonthOf(core.Today(w.now()))
	report, err := w.source.Budget(ctx, userID, m)
	if err != nil {
		return "", fmt.Errorf("compute budget: %w", err)
	}
	ref, err := w.writer.WriteBudget(ctx, userID, report)
	if err != nil {
		return "", fmt.Errorf("write budget: %w", err)
	}
	return ref, nil
}

// Flush exports every dirty user. Users whose export fails stay dirty.
func (w *MirrorWorker) Flush(ctx context.Context) (exported int) {
	for _, userID := range w.Pending() {
		w.dirtyMu.Lock()
		delete(w.dirty, userID)
		w.dirtyMu.Unlock()

		ref, err := w.Export(ctx, userID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to mirror budget", "user_id", userID, "error", err)
			w.dirtyMu.Lock()
			w.dirty[userID] = true
			w.dirtyMu.Unlock()
			continue
		}
		exported++
		slog.InfoContext(ctx, "Mirrored budget", "user_id", userID, "ref", ref)
	}
	return exported
}

// Start begins the flush loop. Returns an error if already running.
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("mirror worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror worker started", "flush_interval", w.config.FlushInterval)
	return nil
}

// Stop flushes what is pending and waits for the loop to end.
func (w *MirrorWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Mirror worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *MirrorWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			w.Flush(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			w.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}
