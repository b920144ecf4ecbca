package verification

import (
	"context"
	"time"

	"veriloc/pkg/domain"
)

// ResultStore persists verification results. DeleteBySubject serves erasure;
// DeleteExpired serves the retention sweeper.
type ResultStore interface {
	Save(ctx context.Context, result Result) error
	ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]Result, error)
	DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SampleCacheStore persists the 24-hour raw-sample cache.
type SampleCacheStore interface {
	Put(ctx context.Context, cached CachedSample) error
	ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]CachedSample, error)
	DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// EmergencyStore persists full-precision emergency records.
type EmergencyStore interface {
	Save(ctx context.Context, record EmergencyRecord) error
	ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]EmergencyRecord, error)
	DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CooldownStore tracks when each subject last completed a verification so
// repeat calls inside the window are rejected without processing a sample.
// The redis implementation shares this state across engine instances.
type CooldownStore interface {
	// Remaining returns how long the subject must still wait, or zero.
	Remaining(ctx context.Context, subjectID domain.SubjectID, now time.Time) (time.Duration, error)
	// Mark records a completed verification at now for the given window.
	Mark(ctx context.Context, subjectID domain.SubjectID, now time.Time, window time.Duration) error
	// Clear drops the subject's cooldown state (monitoring stop, erasure).
	Clear(ctx context.Context, subjectID domain.SubjectID) error
}
