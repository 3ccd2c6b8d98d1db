package domain

import "context"

// Place describes the named location around a coordinate.
type Place struct {
	Name             string
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// PlaceResolver turns cell coordinates into human-readable places for alert
// messages.
type PlaceResolver interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}

// CellCenter returns the center of the cell anchored at its south-west corner.
func CellCenter(k CellKey) (lat, lon float64) {
	return k.Lat + CellSizeDeg/2, k.Lon + CellSizeDeg/2
}
