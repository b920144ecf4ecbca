package verification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veriloc/internal/privacy"
	"veriloc/pkg/domain"
	txcontext "veriloc/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

func affected(res sql.Result, err error, op string) (int, error) {
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PostgresResultStore persists verification results.
type PostgresResultStore struct {
	db *sql.DB
}

func NewPostgresResultStore(db *sql.DB) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

func (s *PostgresResultStore) Save(ctx context.Context, r Result) error {
	const q = `
		INSERT INTO verification_results
			(id, subject_id, target_id, relevant, contained, distance_m, accuracy_bucket, captured_at, retention_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := execer(ctx, s.db).ExecContext(ctx, q,
		r.ID, uuid.UUID(r.SubjectID), uuid.UUID(r.TargetID),
		r.Relevant, r.Contained, r.DistanceMeters, string(r.Bucket),
		r.CapturedAt, r.RetentionDeadline,
	)
	if err != nil {
		return fmt.Errorf("insert verification result: %w", err)
	}
	return nil
}

func (s *PostgresResultStore) ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]Result, error) {
	const q = `
		SELECT id, subject_id, target_id, relevant, contained, distance_m, accuracy_bucket, captured_at, retention_deadline
		FROM verification_results
		WHERE subject_id = $1
		ORDER BY captured_at`
	rows, err := execer(ctx, s.db).QueryContext(ctx, q, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list verification results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r        Result
			subjectU uuid.UUID
			targetU  uuid.UUID
			bucket   string
		)
		if err := rows.Scan(&r.ID, &subjectU, &targetU, &r.Relevant, &r.Contained, &r.DistanceMeters, &bucket, &r.CapturedAt, &r.RetentionDeadline); err != nil {
			return nil, fmt.Errorf("scan verification result: %w", err)
		}
		r.SubjectID = domain.SubjectID(subjectU)
		r.TargetID = domain.TargetID(targetU)
		r.Bucket = privacy.AccuracyBucket(bucket)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresResultStore) DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) (int, error) {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM verification_results WHERE subject_id = $1`, uuid.UUID(subjectID))
	return affected(res, err, "delete verification results by subject")
}

func (s *PostgresResultStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM verification_results WHERE retention_deadline < $1`, now)
	return affected(res, err, "delete expired verification results")
}

// PostgresSampleCache persists the 24-hour raw-sample cache.
type PostgresSampleCache struct {
	db *sql.DB
}

func NewPostgresSampleCache(db *sql.DB) *PostgresSampleCache {
	return &PostgresSampleCache{db: db}
}

func (s *PostgresSampleCache) Put(ctx context.Context, c CachedSample) error {
	const q = `
		INSERT INTO sample_cache
			(id, subject_id, lat, lon, accuracy_m, altitude_m, captured_at, mocked, provider, retention_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := execer(ctx, s.db).ExecContext(ctx, q,
		c.ID, uuid.UUID(c.SubjectID),
		c.Sample.Point.Lat, c.Sample.Point.Lon, c.Sample.AccuracyMeters, c.Sample.AltitudeMeters,
		c.Sample.CapturedAt, c.Sample.Mocked, c.Sample.Provider, c.RetentionDeadline,
	)
	if err != nil {
		return fmt.Errorf("insert cached sample: %w", err)
	}
	return nil
}

func (s *PostgresSampleCache) ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]CachedSample, error) {
	const q = `
		SELECT id, subject_id, lat, lon, accuracy_m, altitude_m, captured_at, mocked, provider, retention_deadline
		FROM sample_cache
		WHERE subject_id = $1
		ORDER BY captured_at`
	rows, err := execer(ctx, s.db).QueryContext(ctx, q, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list cached samples: %w", err)
	}
	defer rows.Close()

	var out []CachedSample
	for rows.Next() {
		var (
			c        CachedSample
			subjectU uuid.UUID
		)
		if err := rows.Scan(&c.ID, &subjectU, &c.Sample.Point.Lat, &c.Sample.Point.Lon, &c.Sample.AccuracyMeters, &c.Sample.AltitudeMeters, &c.Sample.CapturedAt, &c.Sample.Mocked, &c.Sample.Provider, &c.RetentionDeadline); err != nil {
			return nil, fmt.Errorf("scan cached sample: %w", err)
		}
		c.SubjectID = domain.SubjectID(subjectU)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresSampleCache) DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) (int, error) {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM sample_cache WHERE subject_id = $1`, uuid.UUID(subjectID))
	return affected(res, err, "delete cached samples by subject")
}

func (s *PostgresSampleCache) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM sample_cache WHERE retention_deadline < $1`, now)
	return affected(res, err, "delete expired cached samples")
}

// PostgresEmergencyStore persists full-precision emergency records.
type PostgresEmergencyStore struct {
	db *sql.DB
}

func NewPostgresEmergencyStore(db *sql.DB) *PostgresEmergencyStore {
	return &PostgresEmergencyStore{db: db}
}

func (s *PostgresEmergencyStore) Save(ctx context.Context, r EmergencyRecord) error {
	const q = `
		INSERT INTO emergency_records (id, subject_id, lat, lon, accuracy_m, captured_at, retention_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := execer(ctx, s.db).ExecContext(ctx, q,
		r.ID, uuid.UUID(r.SubjectID), r.Point.Lat, r.Point.Lon, r.AccuracyMeters, r.CapturedAt, r.RetentionDeadline,
	)
	if err != nil {
		return fmt.Errorf("insert emergency record: %w", err)
	}
	return nil
}

func (s *PostgresEmergencyStore) ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]EmergencyRecord, error) {
	const q = `
		SELECT id, subject_id, lat, lon, accuracy_m, captured_at, retention_deadline
		FROM emergency_records
		WHERE subject_id = $1
		ORDER BY captured_at`
	rows, err := execer(ctx, s.db).QueryContext(ctx, q, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list emergency records: %w", err)
	}
	defer rows.Close()

	var out []EmergencyRecord
	for rows.Next() {
		var (
			r        EmergencyRecord
			subjectU uuid.UUID
		)
		if err := rows.Scan(&r.ID, &subjectU, &r.Point.Lat, &r.Point.Lon, &r.AccuracyMeters, &r.CapturedAt, &r.RetentionDeadline); err != nil {
			return nil, fmt.Errorf("scan emergency record: %w", err)
		}
		r.SubjectID = domain.SubjectID(subjectU)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresEmergencyStore) DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) (int, error) {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM emergency_records WHERE subject_id = $1`, uuid.UUID(subjectID))
	return affected(res, err, "delete emergency records by subject")
}

func (s *PostgresEmergencyStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM emergency_records WHERE retention_deadline < $1`, now)
	return affected(res, err, "delete expired emergency records")
}
