package model

import "math"

// Point is a WGS84 coordinate in (longitude, latitude) order, matching the
// order used by the routing services.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the point carries usable coordinates.
// (0,0) is treated as missing: it only occurs in the source data when the
// geocoder failed.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) {
		return false
	}
	if p.Lon == 0 && p.Lat == 0 {
		return false
	}
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// HaversineMeters returns the great-circle distance between a and b in metres.
func HaversineMeters(a, b Point) float64 {
	const R = 6371000.0 // mean Earth radius, metres
	if a == b {
		return 0
	}
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLam := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLam/2)*math.Sin(dLam/2)
	return 2 * R * math.Asin(math.Sqrt(h))
}
