package verification

import (
	"time"

	"github.com/google/uuid"

	"veriloc/internal/geo"
	"veriloc/internal/location"
	"veriloc/internal/privacy"
	"veriloc/internal/spoof"
	"veriloc/pkg/domain"
)

// Retention periods per record class. The retention sweeper is the only
// deleter of these records.
const (
	ResultRetention      = 90 * 24 * time.Hour
	SampleCacheRetention = 24 * time.Hour
	EmergencyRetention   = 7 * 24 * time.Hour
)

// Result is the durable outcome of one verification call. Created once,
// never mutated, deleted by the retention sweeper at its deadline. It holds
// no coordinates: only the minimized proximity facts.
type Result struct {
	ID                uuid.UUID
	SubjectID         domain.SubjectID
	TargetID          domain.TargetID
	Relevant          bool
	Contained         bool
	DistanceMeters    float64
	Bucket            privacy.AccuracyBucket
	CapturedAt        time.Time
	RetentionDeadline time.Time
}

// CachedSample is the short-lived raw-sample cache entry kept for dispute
// resolution. Written only by the verification service, which owns the
// minimization pipeline; expires after 24 hours.
type CachedSample struct {
	ID                uuid.UUID
	SubjectID         domain.SubjectID
	Sample            location.Sample
	RetentionDeadline time.Time
}

// EmergencyRecord holds full-precision coordinates. This is the single
// safety-justified exception to obfuscation, balanced by a short retention
// period and scheduled hard deletion.
type EmergencyRecord struct {
	ID                uuid.UUID
	SubjectID         domain.SubjectID
	Point             geo.Point
	AccuracyMeters    float64
	CapturedAt        time.Time
	RetentionDeadline time.Time
}

// OutcomeKind enumerates the possible answers to a verification request.
type OutcomeKind string

const (
	OutcomeConsentRequired   OutcomeKind = "consent_required"
	OutcomeCooldown          OutcomeKind = "cooldown"
	OutcomeNotRelevant       OutcomeKind = "not_relevant"
	OutcomeUntrustedLocation OutcomeKind = "untrusted_location"
	OutcomeVerified          OutcomeKind = "verified"
)

// Outcome is the caller-facing result of Verify. Reasons are populated only
// for untrusted outcomes and are meant for audit, not for the subject: the
// transport must not reveal which layer triggered.
type Outcome struct {
	Kind      OutcomeKind
	Remaining time.Duration // cooldown only
	Reasons   []spoof.ReasonCode

	// Verified only.
	Contained      bool
	DistanceMeters float64
	Bucket         privacy.AccuracyBucket
	TargetID       domain.TargetID
}
