package domain

import dErrors "veriloc/pkg/domain-errors"

// TrackingPurpose identifies why location data is processed. Purpose binding
// allows selective consent revocation without affecting other flows.
//
// Usage: construct via ParseTrackingPurpose at trust boundaries to enforce
// the allowlist; direct casting bypasses validation.
type TrackingPurpose string

// Supported tracking purposes.
const (
	PurposeWorkVerification  TrackingPurpose = "work_verification"
	PurposeShiftMonitoring   TrackingPurpose = "shift_monitoring"
	PurposeEmergencyTracking TrackingPurpose = "emergency_tracking"
	PurposeOrgMonitoring     TrackingPurpose = "org_monitoring"
)

// validTrackingPurposes is the single source of truth for valid purposes.
var validTrackingPurposes = map[TrackingPurpose]bool{
	PurposeWorkVerification:  true,
	PurposeShiftMonitoring:   true,
	PurposeEmergencyTracking: true,
	PurposeOrgMonitoring:     true,
}

// ParseTrackingPurpose constructs a TrackingPurpose from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseTrackingPurpose(s string) (TrackingPurpose, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "purpose cannot be empty")
	}
	p := TrackingPurpose(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return p, nil
}

// IsValid checks if the purpose is one of the supported enum values.
func (p TrackingPurpose) IsValid() bool {
	return validTrackingPurposes[p]
}

func (p TrackingPurpose) String() string {
	return string(p)
}
