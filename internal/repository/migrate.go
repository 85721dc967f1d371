package repository

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	return s.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil
	})
}

// EnsureCreated applies the schema only when the database has never been migrated.
func (s *Store) EnsureCreated() error {
	return s.withMigrator(func(m *migrate.Migrate) error {
		_, _, err := m.Version()
		if err == nil {
			return nil
		}
		if !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	})
}

// Drop removes every table, including the migration bookkeeping.
func (s *Store) Drop() error {
	return s.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Drop(); err != nil {
			return fmt.Errorf("failed to drop database: %w", err)
		}
		return nil
	})
}

// SchemaVersion returns the applied migration version, 0 when none.
func (s *Store) SchemaVersion() (uint, error) {
	var version uint
	err := s.withMigrator(func(m *migrate.Migrate) error {
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("schema version %d is dirty", v)
		}
		version = v
		return nil
	})
	return version, err
}

// withMigrator builds a fresh migrator per call; Drop leaves the migrate
// driver without its version table, so instances are never reused.
func (s *Store) withMigrator(fn func(m *migrate.Migrate) error) error {
	var dir, url string
	switch s.driver {
	case "sqlite":
		dir, url = "migrations/sqlite", sqliteMigrationURL(s.cfg)
	case "postgres":
		dir, url = "migrations/postgres", postgresMigrationURL(s.cfg)
	default:
		return fmt.Errorf("unsupported driver: %s", s.driver)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	return fn(m)
}
