package backend

import (
	"errors"
	"fmt"
	"strings"

	"cashflow/internal/config"
)

// setting is one named value a backend cannot start without.
type setting struct {
	name  string
	value func(Config) string
}

var required = map[BackendType][]setting{
	MemoryBackend: nil,
	SQLiteBackend: {
		{"SQLite database path", func(c Config) string { return c.SQLiteDBPath }},
	},
	PostgresBackend: {
		{"database URL", func(c Config) string { return c.DatabaseURL }},
	},
	SupabaseBackend: {
		{"supabase URL", func(c Config) string { return c.SupabaseURL }},
		{"supabase key", func(c Config) string { return c.SupabaseKey }},
	},
}

// FromAppConfig picks the backend settings out of the process config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	bc := Config{
		Type:         BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		DatabaseURL:  cfg.DatabaseURL,
		SupabaseURL:  cfg.SupabaseURL,
		SupabaseKey:  cfg.SupabaseKey,
		SeedFile:     cfg.SeedFile,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	}
	if !bc.Type.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %q", cfg.DataBackend)
	}
	return bc, nil
}

// Validate reports every setting the selected backend is missing.
func (c Config) Validate() error {
	settings, ok := required[c.Type]
	if !ok {
		return fmt.Errorf("invalid backend type %q (want one of %s)", c.Type, strings.Join(GetBackendTypeStrings(), ", "))
	}
	var missing []string
	for _, s := range settings {
		if strings.TrimSpace(s.value(c)) == "" {
			missing = append(missing, s.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s backend requires %s", c.Type, strings.Join(missing, " and "))
	}
	return nil
}

func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend}
}

func GetBackendTypeStrings() []string {
	out := make([]string, 0, len(required))
	for _, t := range GetBackendTypes() {
		out = append(out, t.String())
	}
	return out
}
