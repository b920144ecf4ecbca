package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Bootstrap creates the engine's tables if they do not exist. Run once at
// startup; every statement is idempotent.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS consent_records (
			id          UUID PRIMARY KEY,
			subject_id  UUID        NOT NULL,
			purpose     TEXT        NOT NULL,
			granted_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ NOT NULL,
			revoked_at  TIMESTAMPTZ,
			tombstoned  BOOLEAN     NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS consent_records_subject_idx ON consent_records (subject_id)`,

		`CREATE TABLE IF NOT EXISTS audit_entries (
			id       UUID PRIMARY KEY,
			decision TEXT        NOT NULL,
			subject  TEXT        NOT NULL,
			ts       TIMESTAMPTZ NOT NULL,
			context  JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS audit_entries_subject_idx ON audit_entries (subject)`,
		`CREATE INDEX IF NOT EXISTS audit_entries_ts_idx ON audit_entries (ts)`,

		`CREATE TABLE IF NOT EXISTS verification_results (
			id                 UUID PRIMARY KEY,
			subject_id         UUID             NOT NULL,
			target_id          UUID             NOT NULL,
			relevant           BOOLEAN          NOT NULL,
			contained          BOOLEAN          NOT NULL,
			distance_m         DOUBLE PRECISION NOT NULL,
			accuracy_bucket    TEXT             NOT NULL,
			captured_at        TIMESTAMPTZ      NOT NULL,
			retention_deadline TIMESTAMPTZ      NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS verification_results_subject_idx ON verification_results (subject_id)`,
		`CREATE INDEX IF NOT EXISTS verification_results_deadline_idx ON verification_results (retention_deadline)`,

		`CREATE TABLE IF NOT EXISTS sample_cache (
			id                 UUID PRIMARY KEY,
			subject_id         UUID             NOT NULL,
			lat                DOUBLE PRECISION NOT NULL,
			lon                DOUBLE PRECISION NOT NULL,
			accuracy_m         DOUBLE PRECISION NOT NULL,
			altitude_m         DOUBLE PRECISION NOT NULL,
			captured_at        TIMESTAMPTZ      NOT NULL,
			mocked             BOOLEAN          NOT NULL,
			provider           TEXT             NOT NULL,
			retention_deadline TIMESTAMPTZ      NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sample_cache_subject_idx ON sample_cache (subject_id)`,
		`CREATE INDEX IF NOT EXISTS sample_cache_deadline_idx ON sample_cache (retention_deadline)`,

		`CREATE TABLE IF NOT EXISTS emergency_records (
			id                 UUID PRIMARY KEY,
			subject_id         UUID             NOT NULL,
			lat                DOUBLE PRECISION NOT NULL,
			lon                DOUBLE PRECISION NOT NULL,
			accuracy_m         DOUBLE PRECISION NOT NULL,
			captured_at        TIMESTAMPTZ      NOT NULL,
			retention_deadline TIMESTAMPTZ      NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS emergency_records_subject_idx ON emergency_records (subject_id)`,
		`CREATE INDEX IF NOT EXISTS emergency_records_deadline_idx ON emergency_records (retention_deadline)`,

		`CREATE TABLE IF NOT EXISTS erasure_tokens (
			subject   TEXT PRIMARY KEY,
			token     TEXT        NOT NULL,
			erased_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
