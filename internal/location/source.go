package location

import (
	"context"
	"time"

	"veriloc/pkg/domain"
)

// Source is the live position collaborator. Implementations are expected to
// block until a fix is available; callers bound the wait with a context
// deadline and translate expiry into location_unavailable.
type Source interface {
	Current(ctx context.Context, subjectID domain.SubjectID) (Sample, error)
}

// MotionSource is the optional motion-sensor collaborator. A nil MotionSource
// is fully supported; detection then runs without the sensor cross-check.
type MotionSource interface {
	Recent(ctx context.Context, subjectID domain.SubjectID, since time.Time) ([]MotionSample, error)
}
