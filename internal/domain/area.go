package domain

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
)

const (
	// EarthRadiusKm is the mean Earth radius used for cell areas.
	EarthRadiusKm = 6371.0

	// CellSizeDeg is the edge length of a grid cell.
	CellSizeDeg = 1.0

	// minCellAreaKm2 replaces zero or negative areas (polar rows, bad input).
	minCellAreaKm2 = 1e-9
)

// CellRect returns the lat/lng rectangle of the cell whose south-west corner
// is (lat, lon). Latitudes are clamped to the poles.
func CellRect(lat, lon float64) s2.Rect {
	lat1 := clampLat(lat)
	lat2 := clampLat(lat + CellSizeDeg)
	lng1 := normalizeLng(lon)
	lng2 := normalizeLng(lon + CellSizeDeg)
	return s2.Rect{
		Lat: r1.Interval{Lo: radians(lat1), Hi: radians(lat2)},
		Lng: s1.IntervalFromEndpoints(radians(lng1), radians(lng2)),
	}
}

// CellAreaKm2 returns the area of the 1°×1° cell anchored at (lat, lon):
// R²·|sin φ2 − sin φ1|·|λ2 − λ1|. Non-positive areas are floored.
func CellAreaKm2(lat, lon float64) float64 {
	area := CellRect(lat, lon).Area() * EarthRadiusKm * EarthRadiusKm
	if !(area > 0) {
		return minCellAreaKm2
	}
	return area
}

// Density converts a cell total to kg/km²; areas are floored like CellAreaKm2.
func Density(value, unitScale, areaKm2 float64) float64 {
	if !(areaKm2 > 0) {
		areaKm2 = minCellAreaKm2
	}
	return value * unitScale / areaKm2
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// normalizeLng folds a longitude into [-180, 180].
func normalizeLng(lon float64) float64 {
	return math.Remainder(lon, 360)
}

func radians(deg float64) float64 {
	return (s1.Angle(deg) * s1.Degree).Radians()
}

// CellPolygon returns the closed planar ring, in degrees, of the cell anchored
// at the key's south-west corner. Latitudes are clamped to the poles.
func CellPolygon(k CellKey) (*geom.Polygon, error) {
	west, east := k.Lon, k.Lon+CellSizeDeg
	south, north := clampLat(k.Lat), clampLat(k.Lat+CellSizeDeg)

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
		{west, south},
	}})
	if err != nil {
		return nil, fmt.Errorf("cell polygon %v: %w", k, err)
	}
	return poly, nil
}
