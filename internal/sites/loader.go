package sites

import (
	"encoding/json"
	"fmt"
	"os"

	"veriloc/internal/geo"
	"veriloc/pkg/domain"
)

type siteFileEntry struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters float64 `json:"radius_m"`
	OrgID        string  `json:"org_id"`
}

// LoadFile reads a JSON array of work sites and seeds a registry from it.
// Entries with invalid ids or coordinates fail the load; a half-seeded
// registry would silently shrink the verification surface.
func LoadFile(path string) (*InMemoryRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	var entries []siteFileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}

	registry := NewInMemoryRegistry()
	for i, e := range entries {
		id, err := domain.ParseTargetID(e.ID)
		if err != nil {
			return nil, fmt.Errorf("sites file entry %d: %w", i, err)
		}
		orgID, err := domain.ParseOrgID(e.OrgID)
		if err != nil {
			return nil, fmt.Errorf("sites file entry %d: %w", i, err)
		}
		point := geo.Point{Lat: e.Lat, Lon: e.Lon}
		if err := point.Validate(); err != nil {
			return nil, fmt.Errorf("sites file entry %d: %w", i, err)
		}
		if e.RadiusMeters <= 0 {
			return nil, fmt.Errorf("sites file entry %d: radius must be positive", i)
		}
		registry.Put(TargetLocation{
			ID:           id,
			Name:         e.Name,
			Point:        point,
			RadiusMeters: e.RadiusMeters,
			OrgID:        orgID,
		})
	}
	return registry, nil
}
