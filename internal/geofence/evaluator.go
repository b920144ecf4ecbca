// Package geofence determines whether a sample is near an authorized work
// site and whether it falls inside that site's boundary. Targets beyond the
// relevance threshold are never examined further and never logged, so the
// engine manufactures no location data about places the subject has no
// business relationship with.
package geofence

import (
	"veriloc/internal/geo"
	"veriloc/internal/privacy"
	"veriloc/internal/sites"
	"veriloc/pkg/domain"
)

// RelevanceThresholdMeters is the minimization radius: only targets within it
// are candidates for containment at all.
const RelevanceThresholdMeters = 500.0

// Proximity is the only geometry the engine ever persists: a relevance flag,
// a containment flag, a distance rounded to 50 m, and an accuracy bucket.
type Proximity struct {
	Relevant       bool
	Contained      bool
	DistanceMeters float64
	Bucket         privacy.AccuracyBucket
	TargetID       domain.TargetID
}

// Evaluator computes relevance and containment against candidate targets.
type Evaluator struct {
	relevanceMeters float64
}

// New returns an Evaluator with the standard relevance threshold.
func New() *Evaluator {
	return &Evaluator{relevanceMeters: RelevanceThresholdMeters}
}

// NearestRelevant returns the closest target within the relevance threshold,
// or ok=false when no candidate qualifies. Targets with degenerate
// coordinates are skipped rather than failing the evaluation.
func (e *Evaluator) NearestRelevant(p geo.Point, targets []sites.TargetLocation) (sites.TargetLocation, bool, error) {
	if err := p.Validate(); err != nil {
		return sites.TargetLocation{}, false, err
	}

	var (
		nearest  sites.TargetLocation
		bestDist = e.relevanceMeters
		found    bool
	)
	for _, t := range targets {
		d, err := geo.DistanceMeters(p, t.Point)
		if err != nil {
			continue
		}
		if d <= bestDist {
			nearest = t
			bestDist = d
			found = true
		}
	}
	return nearest, found, nil
}

// Resolve computes the persisted Proximity for a target that already passed
// the relevance gate. Call it with the obfuscated point: the rounded distance
// and containment flag are derived from minimized coordinates only.
func (e *Evaluator) Resolve(p geo.Point, accuracyMeters float64, target sites.TargetLocation) (Proximity, error) {
	d, err := geo.DistanceMeters(p, target.Point)
	if err != nil {
		return Proximity{}, err
	}
	return Proximity{
		Relevant:       true,
		Contained:      d <= target.RadiusMeters,
		DistanceMeters: privacy.RoundDistance(d),
		Bucket:         privacy.BucketForAccuracy(accuracyMeters),
		TargetID:       target.ID,
	}, nil
}
