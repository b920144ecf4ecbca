// Package geo implements great-circle math on WGS84-style coordinates.
// Pure functions, deterministic for identical inputs; all distances are in
// meters and all bearings in degrees clockwise from true north.
package geo

import (
	"math"

	dErrors "veriloc/pkg/domain-errors"
)

// Mean Earth radius in meters.
const earthRadiusMeters = 6371000.0

// Point is a geographic coordinate (WGS 84).
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects NaN, infinite, and out-of-range coordinates. Degenerate
// inputs must fail loudly rather than silently producing a zero distance.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return dErrors.New(dErrors.CodeInvalidCoordinate, "coordinate is not a finite number")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return dErrors.New(dErrors.CodeInvalidCoordinate, "latitude out of range")
	}
	if p.Lon < -180 || p.Lon > 180 {
		return dErrors.New(dErrors.CodeInvalidCoordinate, "longitude out of range")
	}
	return nil
}

// DistanceMeters returns the haversine great-circle distance between a and b.
// Accurate to sub-meter for regional distances.
func DistanceMeters(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c, nil
}

// BearingDegrees returns the initial bearing from a to b, normalized to
// [0, 360) with 0 = north.
func BearingDegrees(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := degrees(math.Atan2(y, x))

	return math.Mod(bearing+360, 360), nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
