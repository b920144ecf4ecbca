package consent

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veriloc/pkg/domain"
	txcontext "veriloc/pkg/platform/tx"
)

// PostgresStore persists consent records in the consent_records table.
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

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	const q = `
		INSERT INTO consent_records (id, subject_id, purpose, granted_at, expires_at, revoked_at, tombstoned)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.execer(ctx).ExecContext(ctx, q,
		record.ID,
		uuid.UUID(record.SubjectID),
		record.Purpose.String(),
		record.GrantedAt,
		record.ExpiresAt,
		record.RevokedAt,
		record.Tombstoned,
	)
	if err != nil {
		return fmt.Errorf("insert consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]Record, error) {
	const q = `
		SELECT id, subject_id, purpose, granted_at, expires_at, revoked_at, tombstoned
		FROM consent_records
		WHERE subject_id = $1
		ORDER BY granted_at`
	rows, err := s.execer(ctx).QueryContext(ctx, q, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r         Record
			subjectU  uuid.UUID
			purpose   string
			revokedAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &subjectU, &purpose, &r.GrantedAt, &r.ExpiresAt, &revokedAt, &r.Tombstoned); err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		r.SubjectID = domain.SubjectID(subjectU)
		r.Purpose = domain.TrackingPurpose(purpose)
		if revokedAt.Valid {
			t := revokedAt.Time
			r.RevokedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Revoke(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, revokedAt time.Time) error {
	const q = `
		UPDATE consent_records
		SET revoked_at = $3
		WHERE subject_id = $1 AND purpose = $2 AND revoked_at IS NULL`
	if _, err := s.execer(ctx).ExecContext(ctx, q, uuid.UUID(subjectID), purpose.String(), revokedAt); err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) TombstoneSubject(ctx context.Context, subjectID domain.SubjectID) error {
	const q = `UPDATE consent_records SET tombstoned = TRUE WHERE subject_id = $1`
	if _, err := s.execer(ctx).ExecContext(ctx, q, uuid.UUID(subjectID)); err != nil {
		return fmt.Errorf("tombstone consent records: %w", err)
	}
	return nil
}
