package consent

import (
	"context"
	"time"

	"veriloc/pkg/domain"
)

// Store persists consent decisions. Implementations return sentinel errors;
// the service translates them into domain errors.
type Store interface {
	Save(ctx context.Context, record Record) error
	ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]Record, error)
	Revoke(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, revokedAt time.Time) error
	// TombstoneSubject logically deletes every record for the subject while
	// keeping the rows for grant/revoke accountability.
	TombstoneSubject(ctx context.Context, subjectID domain.SubjectID) error
}
