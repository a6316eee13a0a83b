// Package cli holds the start-up and shutdown steps shared by the binaries
// under cmd/.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cashflow/internal/backend"
	"cashflow/internal/config"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
)

// LoadEnvFile reads .env when present. Production sets real variables.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the environment is invalid.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal(slog.Default(), "Configuration validation failed", err)
	}
	return cfg
}

// SetupLogger installs a component logger built from LOG_LEVEL and
// LOG_FORMAT as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = applog.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// OpenBackend opens the configured record store or exits.
func OpenBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.Result {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}
	return res
}

func ForecastConfig(cfg *config.Config) services.ForecastConfig {
	return services.ForecastConfig{
		SeriesMode:     services.SeriesMode(cfg.SeriesMode),
		PaydayFallback: cfg.PaydayFallback,
		CacheSize:      cfg.CacheSize,
		CacheTTL:       cfg.CacheTTL,
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// cancellation cleanup runs for at most timeout, then done is closed.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received", "timeout", timeout)

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup()
			}
		}()

		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-timer.C:
			logger.Warn("Shutdown timeout reached, exiting with cleanup pending")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the signal arrived and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

func fatal(logger *slog.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{"error", err}, args...)...)
	os.Exit(1)
}
