package location

import (
	"time"

	"veriloc/internal/geo"
)

// Sample is one raw position fix as reported by the device. Immutable value
// type; created on every fix and never mutated afterwards. Full-precision
// coordinates in a Sample exist only in memory until the minimization step.
type Sample struct {
	Point          geo.Point
	AccuracyMeters float64
	AltitudeMeters float64
	CapturedAt     time.Time
	// Mocked is the source-reported flag indicating the fix came from a mock
	// provider rather than real hardware.
	Mocked   bool
	Provider string
}

// MotionSample is a best-effort reading from the device motion sensors: net
// linear acceleration magnitude at a point in time. Absence of motion data
// must never block verification.
type MotionSample struct {
	Magnitude  float64
	CapturedAt time.Time
}
