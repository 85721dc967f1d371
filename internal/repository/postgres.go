package repository

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"

	"github.com/opensource-finance/storefront/internal/domain"
)

// openPostgres opens a PostgreSQL database connection.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	host, port, dbname := postgresTarget(cfg)

	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		port,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		dbname,
		getSSLMode(cfg.PostgresSSLMode),
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}

func postgresTarget(cfg domain.RepositoryConfig) (host string, port int, dbname string) {
	host = cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}

	port = cfg.PostgresPort
	if port == 0 {
		port = 5432
	}

	dbname = cfg.PostgresDB
	if dbname == "" {
		dbname = "storefront"
	}
	return host, port, dbname
}

// postgresMigrationURL builds the URL form expected by golang-migrate.
func postgresMigrationURL(cfg domain.RepositoryConfig) string {
	host, port, dbname := postgresTarget(cfg)

	u := url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + strconv.Itoa(port),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {getSSLMode(cfg.PostgresSSLMode)}}.Encode(),
	}
	if cfg.PostgresUser != "" {
		u.User = url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword)
	}
	return u.String()
}

func getSSLMode(mode string) string {
	if mode == "" {
		return "disable"
	}
	return mode
}
