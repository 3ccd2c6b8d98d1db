package fuzzy

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"golang.org/x/sync/errgroup"
)

// TieTolerance is the distance below which two memberships count as equal.
const TieTolerance = 1e-12

// DefaultSmoothFrac is the default shoulder width as a fraction of max−min.
const DefaultSmoothFrac = 0.05

// Model is the fitted classifier of one gas.
type Model struct {
	Quantiles  Quantiles
	Trapezoids Trapezoids
}

// Fit builds the model for a gas from its density values.
func Fit(values []float64, smoothFrac float64) (*Model, error) {
	q, err := ComputeQuantiles(values)
	if err != nil {
		return nil, err
	}
	return &Model{Quantiles: q, Trapezoids: BuildTrapezoids(q, smoothFrac)}, nil
}

// Memberships returns the membership of x in every class, least severe first.
func (m *Model) Memberships(x float64) [6]float64 {
	var mu [6]float64
	for i, t := range m.Trapezoids {
		mu[i] = t.Membership(x)
	}
	return mu
}

// Classify returns the class of highest membership for x. Classes within
// TieTolerance of the maximum are tied and the most severe of them wins.
func (m *Model) Classify(x float64) domain.Severity {
	return pick(m.Memberships(x))
}

func pick(mu [6]float64) domain.Severity {
	best := math.Inf(-1)
	for _, v := range mu {
		best = math.Max(best, v)
	}
	for i := len(mu) - 1; i >= 0; i-- {
		if math.Abs(mu[i]-best) < TieTolerance {
			return domain.Good + domain.Severity(i)
		}
	}
	return domain.Good
}

// ClassifyGas fits a model on the densities of one gas and labels every record.
func ClassifyGas(gas domain.Gas, records []domain.DensityRecord, smoothFrac float64) (domain.GasTable, error) {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.DensKgKm2
	}

	model, err := Fit(values, smoothFrac)
	if err != nil {
		return domain.GasTable{}, fmt.Errorf("classify %s: %w", gas, err)
	}

	labels := make([]domain.CellLabel, len(records))
	for i, r := range records {
		labels[i] = domain.CellLabel{Key: r.Key(), Label: model.Classify(r.DensKgKm2)}
	}
	return domain.GasTable{Gas: gas, Labels: labels}, nil
}

// ClassifyAll groups records by gas and classifies each group concurrently.
// Tables are returned in canonical gas order; gases without records are omitted.
func ClassifyAll(ctx context.Context, records []domain.DensityRecord, smoothFrac float64) ([]domain.GasTable, error) {
	groups := make(map[domain.Gas][]domain.DensityRecord, len(domain.CanonicalGases))
	for _, r := range records {
		groups[r.Gas] = append(groups[r.Gas], r)
	}

	tables := make([]domain.GasTable, len(domain.CanonicalGases))
	present := make([]bool, len(domain.CanonicalGases))

	g, _ := errgroup.WithContext(ctx)
	for i, gas := range domain.CanonicalGases {
		group := groups[gas]
		if len(group) == 0 {
			continue
		}
		present[i] = true
		g.Go(func() error {
			t, err := ClassifyGas(gas, group, smoothFrac)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.GasTable, 0, len(tables))
	for i, t := range tables {
		if present[i] {
			out = append(out, t)
		}
	}
	return out, nil
}
