package rights

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"veriloc/pkg/platform/sentinel"
	txcontext "veriloc/pkg/platform/tx"
)

// PostgresTokenStore persists the erasure token ledger in the erasure_tokens
// table.
type PostgresTokenStore struct {
	db *sql.DB
}

func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresTokenStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresTokenStore) Save(ctx context.Context, record TokenRecord) error {
	const q = `
		INSERT INTO erasure_tokens (subject, token, erased_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject) DO UPDATE SET token = $2, erased_at = $3`
	if _, err := s.execer(ctx).ExecContext(ctx, q, record.Subject, record.Token, record.ErasedAt); err != nil {
		return fmt.Errorf("insert erasure token: %w", err)
	}
	return nil
}

func (s *PostgresTokenStore) FindBySubject(ctx context.Context, subject string) (TokenRecord, error) {
	const q = `SELECT subject, token, erased_at FROM erasure_tokens WHERE subject = $1`
	var r TokenRecord
	err := s.execer(ctx).QueryRowContext(ctx, q, subject).Scan(&r.Subject, &r.Token, &r.ErasedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TokenRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return TokenRecord{}, fmt.Errorf("find erasure token: %w", err)
	}
	return r, nil
}
