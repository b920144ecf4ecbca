package consent

import (
	"time"

	"github.com/google/uuid"

	"veriloc/pkg/domain"
)

// Record captures a subject's decision for a specific tracking purpose.
// Created on explicit grant, mutated only by grant/revoke, and tombstoned
// (logically deleted) on erasure.
type Record struct {
	ID         uuid.UUID
	SubjectID  domain.SubjectID
	Purpose    domain.TrackingPurpose
	GrantedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	Tombstoned bool
}

// IsActive returns true when consent is currently valid for processing.
func (r Record) IsActive(now time.Time) bool {
	if r.Tombstoned {
		return false
	}
	if r.RevokedAt != nil && !r.RevokedAt.After(now) {
		return false
	}
	return r.ExpiresAt.IsZero() || now.Before(r.ExpiresAt)
}

// ActiveForPurpose reports whether any record grants the purpose at now.
func ActiveForPurpose(records []Record, purpose domain.TrackingPurpose, now time.Time) bool {
	for _, r := range records {
		if r.Purpose == purpose && r.IsActive(now) {
			return true
		}
	}
	return false
}
