package domain

import (
	"strconv"
	"time"
)

// EmissionRecord is one parsed grid-cell line tagged with its file header.
type EmissionRecord struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	Value     float64 `json:"value"`
	Year      int     `json:"year"`
	Gas       Gas     `json:"gas"`
	UnitScale float64 `json:"unit_scale"`
}

// DensityRecord is an EmissionRecord with its areal emission density.
type DensityRecord struct {
	EmissionRecord
	DensKgKm2 float64 `json:"dens_kgkm2"`
}

// CellKey identifies a grid cell in a given year.
type CellKey struct {
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	Year int     `json:"year"`
}

// Key returns the cell key of the record.
func (r EmissionRecord) Key() CellKey {
	return CellKey{Lon: r.Lon, Lat: r.Lat, Year: r.Year}
}

// ID formats the key as "year|lat|lon" with shortest fixed-point coordinates.
// Sinks use it as the external identifier of a cell.
func (k CellKey) ID() string {
	return strconv.Itoa(k.Year) + "|" +
		strconv.FormatFloat(k.Lat, 'f', -1, 64) + "|" +
		strconv.FormatFloat(k.Lon, 'f', -1, 64)
}

// Less orders keys by year, then latitude, then longitude.
func (k CellKey) Less(o CellKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Lat != o.Lat {
		return k.Lat < o.Lat
	}
	return k.Lon < o.Lon
}

// CellLabel is one entry of a per-gas classification table.
type CellLabel struct {
	Key   CellKey
	Label Severity
}

// GasTable holds the classification of every cell present for one gas.
type GasTable struct {
	Gas    Gas
	Labels []CellLabel
}

// Row is one line of the final output: the per-gas labels present for a cell
// and the precautionary final label.
type Row struct {
	Key    CellKey
	Labels map[Gas]Severity
	Final  Severity
}

// Label returns the label for gas g and whether it is present.
func (r Row) Label(g Gas) (Severity, bool) {
	s, ok := r.Labels[g]
	return s, ok && s.Valid()
}

// Params are the knobs of one classification run.
type Params struct {
	MinYear    int
	MaxYear    int
	Year       *int // optional single target year
	SmoothFrac float64
}

// Result is the output of one pipeline run.
type Result struct {
	Rows        []Row
	Params      Params
	GeneratedAt time.Time
}

// NewResult stamps rows with the current time from the package clock.
func NewResult(rows []Row, params Params) Result {
	return Result{Rows: rows, Params: params, GeneratedAt: clock.Now().UTC()}
}
