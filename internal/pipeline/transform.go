package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/couchcryptid/emissions-classifier/internal/fuzzy"
	"github.com/couchcryptid/emissions-classifier/internal/observability"
)

// Transformer turns raw emission records into labelled output rows.
type Transformer interface {
	Transform(ctx context.Context, records []domain.EmissionRecord, params domain.Params) ([]domain.Row, error)
}

// FuzzyTransformer implements Transformer with the density normalizer, the
// per-gas fuzzy classifier and the worst-case aggregator.
type FuzzyTransformer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a FuzzyTransformer.
func NewTransformer(logger *slog.Logger, metrics *observability.Metrics) *FuzzyTransformer {
	return &FuzzyTransformer{
		logger:  logger,
		metrics: metrics,
	}
}

func (t *FuzzyTransformer) Transform(ctx context.Context, records []domain.EmissionRecord, params domain.Params) ([]domain.Row, error) {
	dens, err := domain.Normalize(records, params)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("normalized records", "in", len(records), "out", len(dens))

	tables, err := fuzzy.ClassifyAll(ctx, dens, params.SmoothFrac)
	if err != nil {
		return nil, err
	}
	for _, tbl := range tables {
		t.metrics.RecordsClassified.WithLabelValues(string(tbl.Gas)).Add(float64(len(tbl.Labels)))
		t.logger.Debug("classified gas", "gas", tbl.Gas, "cells", len(tbl.Labels))
	}

	return domain.Aggregate(tables), nil
}
