package domain

import (
	"context"
	"time"
)

// UnitOfWork is the view of a unit of work handed to database validators.
type UnitOfWork interface {
	CustomerRepository() CustomerRepository
}

// CustomerRepository holds the customer queries used during validation.
type CustomerRepository interface {
	// IsFullNameUnique reports whether no persisted customer has exactly this name pair.
	IsFullNameUnique(ctx context.Context, firstName, lastName string) (bool, error)

	// IsFullNameUniqueExcept is IsFullNameUnique ignoring the customer with excludeID.
	IsFullNameUniqueExcept(ctx context.Context, firstName, lastName string, excludeID int64) (bool, error)

	// HasStagedFullName reports whether another customer pending in the same
	// unit of work uses the name pair of c.
	HasStagedFullName(c *Customer) bool
}

// RepositoryConfig holds configuration for store initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `env:"DRIVER"`

	// SQLite specific
	SQLitePath string `env:"SQLITE_PATH"`

	// PostgreSQL specific
	PostgresHost     string `env:"POSTGRES_HOST"`
	PostgresPort     int    `env:"POSTGRES_PORT"`
	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDB       string `env:"POSTGRES_DB"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE"`

	// Connection pool settings
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
}
