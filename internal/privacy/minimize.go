// Package privacy holds the data-minimization primitives applied before any
// geometry leaves the verification service: coordinate obfuscation, distance
// rounding, and categorical accuracy buckets.
package privacy

import (
	"math"

	"veriloc/internal/geo"
	"veriloc/internal/location"
)

// CoordinateResolutionDegrees is the retained coordinate resolution. 0.001
// degrees is roughly 111 m at the equator, coarse enough that an exact
// position cannot be recovered from a persisted value.
const CoordinateResolutionDegrees = 0.001

// DistanceStepMeters is the granularity of every persisted distance.
const DistanceStepMeters = 50.0

// AccuracyBucket is the categorical form of a sample's reported accuracy.
// Only the bucket is ever persisted, never the raw accuracy value.
type AccuracyBucket string

const (
	BucketExcellent  AccuracyBucket = "excellent"
	BucketGood       AccuracyBucket = "good"
	BucketAcceptable AccuracyBucket = "acceptable"
	BucketPoor       AccuracyBucket = "poor"
)

// ObfuscateCoordinate truncates a single axis toward zero at the retained
// resolution. Idempotent: truncating an already-truncated value yields the
// same value.
func ObfuscateCoordinate(v float64) float64 {
	scaled := v / CoordinateResolutionDegrees
	// A previously truncated value can land a hair below its grid line in
	// floating point; the nudge keeps repeated truncation from drifting.
	scaled += math.Copysign(1e-9, v)
	return math.Trunc(scaled) * CoordinateResolutionDegrees
}

// ObfuscatePoint truncates both axes of a coordinate.
func ObfuscatePoint(p geo.Point) geo.Point {
	return geo.Point{
		Lat: ObfuscateCoordinate(p.Lat),
		Lon: ObfuscateCoordinate(p.Lon),
	}
}

// ObfuscateSample returns a copy of the sample with its coordinates reduced
// to the retained resolution. The caller must not use the original sample's
// coordinates past this point.
func ObfuscateSample(s location.Sample) location.Sample {
	s.Point = ObfuscatePoint(s.Point)
	return s
}

// RoundDistance rounds a distance to the nearest 50 m step, ties rounding up:
// 24 -> 0, 25 -> 50, 26 -> 50, 75 -> 100.
func RoundDistance(meters float64) float64 {
	return math.Floor(meters/DistanceStepMeters+0.5) * DistanceStepMeters
}

// BucketForAccuracy maps a reported 1-sigma accuracy in meters to its bucket.
// Boundaries are inclusive: exactly 5 m is still excellent.
func BucketForAccuracy(meters float64) AccuracyBucket {
	switch {
	case meters <= 5:
		return BucketExcellent
	case meters <= 20:
		return BucketGood
	case meters <= 50:
		return BucketAcceptable
	default:
		return BucketPoor
	}
}
