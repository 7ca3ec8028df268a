package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"coinetl/config"

	"github.com/lib/pq"
)

// CreateDatabase connects to the administrative database and creates cfg.DBName
// if it does not exist. It reports whether the database was created.
func CreateDatabase(ctx context.Context, cfg config.PostgresConfig) (bool, error) {
	db, err := sql.Open("postgres", cfg.AdminDSN())
	if err != nil {
		return false, fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	return EnsureDatabase(ctx, db, cfg.DBName)
}

// EnsureDatabase creates name on db unless it already exists. Statements run
// outside any transaction because CREATE DATABASE cannot run inside one.
func EnsureDatabase(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check db exists failed: %w", err)
	}

	if exists {
		return false, nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, fmt.Errorf("create db failed: %w", err)
	}

	return true, nil
}
