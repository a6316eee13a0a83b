package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/cache"
	"cashflow/internal/cli"
	apphttp "cashflow/internal/http"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	logger.Info("Starting cashflow server", "port", cfg.Port, "backend", cfg.DataBackend)

	res := cli.OpenBackend(context.Background(), logger.Slog(), cfg)
	st := res.Store

	forecast := services.NewForecastService(st, cli.ForecastConfig(cfg))
	forecast.Watch(res.Hub)

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	for _, c := range forecast.Caches() {
		cacheManager.Register(c)
	}
	cacheManager.StartCleanup(time.Minute)

	// Writes from the bill worker and cashflowctl reach this process only
	// through the broker. Without one, the cache TTL bounds staleness.
	var relay *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		if relay, err = amqp.NewSubscriber(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
			logger.Warn("AMQP relay unavailable, caches expire by TTL only", "error", err)
			relay = nil
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Forecast:     forecast,
		Transactions: services.NewTransactionService(st),
		Records:      services.NewRecordService(st),
		Bills:        services.NewBillService(st, st),
		Paycheck:     services.NewPaycheckService(st),
		Ready: func(ctx context.Context) error {
			_, err := st.ListCategories(ctx, "readiness-probe")
			return err
		},
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if relay != nil {
			if err := relay.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		forecast.Close()
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	if relay != nil {
		go func() {
			err := relay.ConsumeChanges(ctx, amqp.Forward(res.Hub))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("AMQP relay stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
