package main

import (
	"context"
	"os"
	"time"

	"cashflow/internal/cli"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentBills)

	logger.Info("Starting bill-worker")

	res := cli.OpenBackend(context.Background(), logger.Slog(), cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	schedule, err := services.GetSchedule(cfg.BillSchedule, cfg.BillLeadDay)
	if err != nil {
		logger.Error("Invalid bill schedule", "error", err)
		os.Exit(1)
	}
	processor := services.NewBillProcessor(res.Store, services.NewBillService(res.Store, res.Store), schedule)

	logger.Info("Bill processor configured",
		"interval", cfg.BillInterval,
		"schedule", cfg.BillSchedule,
		"lead_day", cfg.BillLeadDay,
		"backend", cfg.DataBackend)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)

	run := func(now time.Time) {
		count, err := processor.ProcessDue(ctx, now)
		if err != nil {
			logger.Error("Bill processing failed", "error", err)
			return
		}
		logger.Info("Bill processing complete",
			applog.FieldCount, count,
			"next_check", now.Add(cfg.BillInterval).Format("15:04:05"))
	}

	logger.Info("Running initial bill processing...")
	run(time.Now())

	ticker := time.NewTicker(cfg.BillInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				run(now)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Bill worker stopped")
}
