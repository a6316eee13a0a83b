package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

// BillProcessor generates bills for every user holding templates, once per
// scheduled month. lastRun lives in memory, so a restart repeats the month.
// The repeat inserts only bills missing from the store. Bills already stored
// are not touched, whether paid, rescheduled or edited.
type BillProcessor struct {
	templates store.TemplateStore
	bills     *BillService
	schedule  GenerationSchedule

	mu      sync.Mutex
	lastRun map[string]core.Month
}

func NewBillProcessor(templates store.TemplateStore, bills *BillService, schedule GenerationSchedule) *BillProcessor {
	return &BillProcessor{
		templates: templates,
		bills:     bills,
		schedule:  schedule,
		lastRun:   make(map[string]core.Month),
	}
}

// ProcessDue runs generation for every user whose schedule is due and
// returns the number of bills written.
func (p *BillProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.templates == nil || p.bills == nil || p.schedule == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	users, err := p.templates.TemplateOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list template owners: %w", err)
	}

	slog.InfoContext(ctx, "Processing bill templates",
		"users", len(users),
		"processing_date", now.Format(time.DateOnly))

	total := 0
	for _, userID := range users {
		p.mu.Lock()
		last := p.lastRun[userID]
		p.mu.Unlock()

		month, due := p.schedule.Due(now, last)
		if !due {
			continue
		}
		res, err := p.bills.Generate(ctx, userID, month, GenerateOptions{Idempotent: true})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to generate bills",
				"user_id", userID,
				"month", month.String(),
				"error", err)
			continue
		}

		p.mu.Lock()
		p.lastRun[userID] = month
		p.mu.Unlock()
		total += res.Count
	}

	slog.InfoContext(ctx, "Bill processing complete",
		"generated", total,
		"users_checked", len(users))
	return total, nil
}
