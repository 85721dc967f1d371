// Package repository provides the generic repository, the unit of work and
// the SQL store they run on.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/opensource-finance/storefront/internal/domain"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrOutOfRange          = errors.New("argument out of range")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrClosed              = errors.New("unit of work is closed")
)

// Store owns the connection pool shared by all units of work.
// Works with both SQLite and PostgreSQL drivers.
type Store struct {
	db     *sql.DB
	driver string
	cfg    domain.RepositoryConfig
}

// Open creates a store based on configuration.
// The schema is not touched; call Migrate or a unit of work lifecycle operation.
func Open(cfg domain.RepositoryConfig) (*Store, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return NewStore(db, cfg), nil
}

// NewStore wraps an already opened database handle.
func NewStore(db *sql.DB, cfg domain.RepositoryConfig) *Store {
	return &Store{
		db:     db,
		driver: cfg.Driver,
		cfg:    cfg,
	}
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// conn reserves a dedicated connection for one unit of work.
func (s *Store) conn(ctx context.Context) (*sql.Conn, error) {
	return s.db.Conn(ctx)
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(n), 10)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

// queryer is satisfied by *sql.Conn and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
