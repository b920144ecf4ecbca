package rights

import (
	"time"

	"veriloc/internal/audit"
	"veriloc/internal/consent"
	"veriloc/internal/verification"
)

// Export is the complete data-subject access bundle: everything the engine
// holds about one subject at the moment of generation. Assembly is
// all-or-nothing; a partial bundle is never returned.
type Export struct {
	Subject          string                         `json:"subject"`
	GeneratedAt      time.Time                      `json:"generated_at"`
	Consent          []consent.Record               `json:"consent"`
	Results          []verification.Result          `json:"verification_results"`
	CachedSamples    []verification.CachedSample    `json:"cached_samples"`
	EmergencyRecords []verification.EmergencyRecord `json:"emergency_records"`
	AuditTrail       []audit.Entry                  `json:"audit_trail"`
}

// TokenRecord links an erased subject id to the opaque token that replaced it
// in the audit trail. The ledger is what keeps post-erasure audit entries
// reachable for compliance review without re-identifying the subject.
type TokenRecord struct {
	Subject  string
	Token    string
	ErasedAt time.Time
}
