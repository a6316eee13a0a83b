// Package backend builds the configured record store and its change
// notification plumbing.
package backend

import (
	"context"

	"cashflow/internal/amqp"
	"cashflow/internal/notify"
	"cashflow/internal/store"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is a ready store plus the hub its writes are announced on.
// Broker is nil when AMQP is not configured or unreachable.
type Result struct {
	Store   store.Store
	Hub     *notify.Hub
	Broker  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string
	SupabaseURL  string
	SupabaseKey  string
	SeedFile     string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names a record store implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SupabaseBackend BackendType = "supabase"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend:
		return true
	default:
		return false
	}
}
