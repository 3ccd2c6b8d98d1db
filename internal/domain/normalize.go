package domain

import "fmt"

// Normalize filters records to the year window of p, canonicalizes gas names,
// drops non-canonical gases and converts every cell total to areal density.
// When p.Year is set only that year is kept, and an empty result is an error.
func Normalize(records []EmissionRecord, p Params) ([]DensityRecord, error) {
	out := make([]DensityRecord, 0, len(records))
	for _, r := range records {
		if r.Year < p.MinYear || r.Year > p.MaxYear {
			continue
		}
		r.Gas = NormalizeGas(string(r.Gas))
		if !r.Gas.IsCanonical() {
			continue
		}
		if p.Year != nil && r.Year != *p.Year {
			continue
		}
		out = append(out, DensityRecord{
			EmissionRecord: r,
			DensKgKm2:      Density(r.Value, r.UnitScale, CellAreaKm2(r.Lat, r.Lon)),
		})
	}

	if p.Year != nil && len(out) == 0 {
		return nil, fmt.Errorf("%w %d in range [%d,%d]", ErrNoDataForYear, *p.Year, p.MinYear, p.MaxYear)
	}
	return out, nil
}

// Validate checks the run parameters.
func (p Params) Validate() error {
	if p.MinYear > p.MaxYear {
		return fmt.Errorf("%w: min year %d after max year %d", ErrInvalidParams, p.MinYear, p.MaxYear)
	}
	if !(p.SmoothFrac > 0 && p.SmoothFrac < 1) {
		return fmt.Errorf("%w: smoothing fraction %v outside (0,1)", ErrInvalidParams, p.SmoothFrac)
	}
	return nil
}
