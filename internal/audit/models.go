package audit

import (
	"time"

	"github.com/google/uuid"
)

// Decision tags classify audit entries by the engine decision they record.
type Decision string

const (
	DecisionVerificationGranted     Decision = "verification_granted"
	DecisionVerificationUntrusted   Decision = "verification_untrusted"
	DecisionVerificationNotRelevant Decision = "verification_not_relevant"
	DecisionConsentGranted          Decision = "consent_granted"
	DecisionConsentRevoked          Decision = "consent_revoked"
	DecisionMonitoringStarted       Decision = "monitoring_started"
	DecisionMonitoringStopped       Decision = "monitoring_stopped"
	DecisionEmergencyRecorded       Decision = "emergency_recorded"
	DecisionDataExported            Decision = "data_exported"
	DecisionDataErased              Decision = "data_erased"
	DecisionRetentionSweep          Decision = "retention_sweep"
)

// Entry is one append-only audit record. The Subject field holds the subject
// id as a string so erasure can replace it with an opaque anonymization token
// without touching the rest of the row. Entries are retained for the legal
// period regardless of erasure; only the subject linkage is broken.
type Entry struct {
	ID        uuid.UUID
	Decision  Decision
	Subject   string
	Timestamp time.Time
	// Context carries structured, privacy-safe detail: reason codes, target
	// ids, outcome kinds. Never raw coordinates or sensor data.
	Context map[string]string
}
