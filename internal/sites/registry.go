// Package sites exposes the work-site registry: read-only reference data
// supplied by an external collaborator.
package sites

import (
	"context"
	"sync"

	"veriloc/internal/geo"
	"veriloc/pkg/domain"
	"veriloc/pkg/platform/sentinel"
)

// TargetLocation is one geofenced work site.
type TargetLocation struct {
	ID           domain.TargetID
	Name         string
	Point        geo.Point
	RadiusMeters float64
	OrgID        domain.OrgID
}

// Registry looks up candidate targets for a verification request.
type Registry interface {
	FindByID(ctx context.Context, id domain.TargetID) (TargetLocation, error)
	FindByIDs(ctx context.Context, ids []domain.TargetID) ([]TargetLocation, error)
}

// InMemoryRegistry is a map-backed Registry seeded by the site collaborator.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	targets map[domain.TargetID]TargetLocation
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{targets: make(map[domain.TargetID]TargetLocation)}
}

// Put registers or replaces a target.
func (r *InMemoryRegistry) Put(target TargetLocation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[target.ID] = target
}

func (r *InMemoryRegistry) FindByID(_ context.Context, id domain.TargetID) (TargetLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.targets[id]; ok {
		return t, nil
	}
	return TargetLocation{}, sentinel.ErrNotFound
}

// FindByIDs resolves the given ids, silently dropping unknown ones: a stale
// candidate list must not fail the whole verification.
func (r *InMemoryRegistry) FindByIDs(_ context.Context, ids []domain.TargetID) ([]TargetLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TargetLocation, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.targets[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
