package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
)

// Open connects a database/sql pool to PostgreSQL and verifies connectivity.
// Returns nil when the DSN is empty (postgres not configured; callers fall
// back to in-memory stores).
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return db, nil
}
