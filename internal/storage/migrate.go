package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// applySchema brings db up to the latest embedded migration.
//
// It runs over the repository's own handle so in-memory databases see the
// schema. The migrate instance is left open: closing it closes db too.
func applySchema(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	target, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return fmt.Errorf("prepare sqlite migration target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	switch err := m.Up(); {
	case err == nil:
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		return nil
	default:
		version, dirty, _ := m.Version()
		return fmt.Errorf("migrate to latest (at version %d, dirty=%t): %w", version, dirty, err)
	}
}
