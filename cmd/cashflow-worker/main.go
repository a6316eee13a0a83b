package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/cli"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
	gsheet "cashflow/internal/sheets/google"
	"cashflow/internal/worker"
)

// cashflow-worker mirrors monthly budget reports into Google Sheets whenever
// the API announces a change on the AMQP exchange.
func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting cashflow-worker")

	res := cli.OpenBackend(context.Background(), logger.Slog(), cfg)

	sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, "Budget", gsheet.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	forecast := services.NewForecastService(res.Store, cli.ForecastConfig(cfg))
	mirror := worker.NewMirrorWorker(forecast, sheetsClient, worker.DefaultMirrorConfig())

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := mirror.Stop(stopCtx); err != nil {
			logger.Error("Mirror worker stop error", "error", err)
		}
		if err := consumer.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	if err := mirror.Start(ctx); err != nil {
		logger.Error("Failed to start mirror worker", "error", err)
		os.Exit(1)
	}

	go func() {
		err := consumer.ConsumeChanges(ctx, mirror.HandleChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	logger.Info("Budget mirror running",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
