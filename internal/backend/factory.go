package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cashflow/internal/adapters"
	"cashflow/internal/amqp"
	"cashflow/internal/notify"
	"cashflow/internal/storage"
	"cashflow/internal/store"
	"cashflow/internal/store/memory"
	"cashflow/internal/store/postgres"
	"cashflow/internal/store/supabase"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the record store and wraps it so that every write is
// announced on a fresh hub and, when configured, on the AMQP exchange.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	raw, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional; the API keeps working without the mirror.
	var broker *amqp.Client
	if config.AMQPURL != "" {
		broker, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, "")
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			broker = nil
		} else {
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange)
		}
	}

	hub := notify.NewHub()
	var publishers []notify.Publisher
	publishers = append(publishers, hub)
	if broker != nil {
		publishers = append(publishers, broker)
	}

	f.logger.Info("Initialized record store",
		"backend", config.Type.String(),
		"amqp_enabled", broker != nil)

	return &Result{
		Store:  adapters.NewNotifyingStore(raw, f.logger, publishers...),
		Hub:    hub,
		Broker: broker,
		Cleanup: func() error {
			var errs []error
			if broker != nil {
				errs = append(errs, broker.Close())
			}
			errs = append(errs, raw.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case PostgresBackend:
		s, err := postgres.New(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return s, nil
	case SupabaseBackend:
		s, err := supabase.New(config.SupabaseURL, config.SupabaseKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize supabase store: %w", err)
		}
		return s, nil
	case MemoryBackend:
		if config.SeedFile == "" {
			return memory.New(), nil
		}
		s, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
