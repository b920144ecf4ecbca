package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	txcontext "veriloc/pkg/platform/tx"
)

// PostgresStore persists audit entries in the audit_entries table. Context is
// stored as JSON so new decision tags need no schema change.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Context)
	if err != nil {
		return fmt.Errorf("marshal audit context: %w", err)
	}
	const q = `
		INSERT INTO audit_entries (id, decision, subject, ts, context)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.execer(ctx).ExecContext(ctx, q, entry.ID, string(entry.Decision), entry.Subject, entry.Timestamp, payload); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Entry, error) {
	const q = `
		SELECT id, decision, subject, ts, context
		FROM audit_entries
		WHERE subject = $1
		ORDER BY ts`
	rows, err := s.execer(ctx).QueryContext(ctx, q, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			decision string
			payload  []byte
		)
		if err := rows.Scan(&e.ID, &decision, &e.Subject, &e.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Decision = Decision(decision)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Context); err != nil {
				return nil, fmt.Errorf("unmarshal audit context: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ReplaceSubject(ctx context.Context, oldSubject, newSubject string) (int, error) {
	const q = `UPDATE audit_entries SET subject = $2 WHERE subject = $1`
	res, err := s.execer(ctx).ExecContext(ctx, q, oldSubject, newSubject)
	if err != nil {
		return 0, fmt.Errorf("replace audit subject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `DELETE FROM audit_entries WHERE ts < $1`
	res, err := s.execer(ctx).ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
