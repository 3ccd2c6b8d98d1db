// Package domain models gridded reactive-gas emission inventories and the
// severity labels derived from them.
//
// # Data Source
//
// Inputs are SRES-style 1°×1° emission grids (one gas and one year per file),
// distributed as plain text. Each file carries a short header followed by one
// line per grid cell:
//
//	Year: 2030
//	Gas: NOx
//	Units: KT per grid cell per year
//	-46.0, -23.0, 5.0E+02
//
// Header lines are case-insensitive and may appear anywhere before the data.
// Coordinates are the south-west corner of the cell in degrees.
//
// # Units
//
// The first alphabetic token after "Units:" selects a scale to kilograms:
//
//	MT, TG  →  1e9
//	GG, KT  →  1e6
//	T       →  1e3 (metric tonne)
//	KG      →  1
//
// Unrecognized tokens default to 1.
//
// # Gases
//
// The canonical set is CO, NMVOC, NOx and CH4. Spelling variants found in the
// source inventories (NOX, NO2, CH_4) are folded into the canonical names by
// [NormalizeGas]; anything else passes through and is dropped by [Normalize].
//
// # Density
//
// Cell totals are converted to areal density (kg/km² per year) using the
// spherical area of the cell on a sphere of radius 6371 km, see [CellAreaKm2].
//
// # Severity
//
// Six ordered classes borrowed from the AQI vocabulary:
//
//	Good < Moderate < USG < Unhealthy < Very Unhealthy < Hazardous
//
// Classes are assigned per gas by the fuzzy classifier; the final label of a
// cell is the most severe label among the gases present (precautionary rule),
// see [Aggregate].
package domain
