package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/couchcryptid/emissions-classifier/internal/observability"
)

// Extractor reads every emission record of one dataset snapshot.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.EmissionRecord, error)
}

// Loader writes a finished result to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, result domain.Result) error
}

// Alerter is notified after each successful run.
type Alerter interface {
	Alert(ctx context.Context, result domain.Result) error
}

// Pipeline orchestrates one extract-classify-load run.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	alerter     Alerter
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	last        atomic.Pointer[domain.Result]
	mu          sync.Mutex // serializes runs
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithAlerter sets the alerter invoked after a successful run.
func WithAlerter(a Alerter) Option {
	return func(p *Pipeline) { p.alerter = a }
}

// New creates a Pipeline with the given stages and observability. Loaders run
// in the order given.
func New(e Extractor, t Transformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed successfully,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a classification run yet")
	}
	return nil
}

// LastResult returns the result of the most recent successful run.
func (p *Pipeline) LastResult() (domain.Result, bool) {
	r := p.last.Load()
	if r == nil {
		return domain.Result{}, false
	}
	return *r, true
}

// Run executes one full classification: load the grid files, filter and
// convert to densities, classify each gas, aggregate to the worst-case label,
// then hand the result to every loader. Any stage error aborts the run.
func (p *Pipeline) Run(ctx context.Context, params domain.Params) (result domain.Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := params.Validate(); err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return domain.Result{}, err
	}

	p.logger.Info("classification run started",
		"min_year", params.MinYear,
		"max_year", params.MaxYear,
		"year", yearAttr(params.Year),
		"smooth_frac", params.SmoothFrac,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	start := time.Now()
	defer func() {
		if err != nil {
			p.metrics.Runs.WithLabelValues("error").Inc()
			p.logger.Error("classification run failed", "error", err, "duration", time.Since(start))
		}
	}()

	records, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load grid files: %w", err)
	}

	rows, err := p.transformer.Transform(ctx, records, params)
	if err != nil {
		return domain.Result{}, fmt.Errorf("classify: %w", err)
	}

	result = domain.NewResult(rows, params)

	for _, l := range p.loaders {
		if err := l.Load(ctx, result); err != nil {
			p.metrics.SinkWrites.WithLabelValues(l.Name(), "error").Inc()
			return domain.Result{}, fmt.Errorf("write %s: %w", l.Name(), err)
		}
		p.metrics.SinkWrites.WithLabelValues(l.Name(), "success").Inc()
	}

	for _, r := range result.Rows {
		p.metrics.CellsLabeled.WithLabelValues(r.Final.String()).Inc()
	}
	elapsed := time.Since(start)
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.LastRunTimestamp.Set(float64(result.GeneratedAt.Unix()))
	p.last.Store(&result)
	p.ready.Store(true)

	p.logger.Info("classification run finished",
		"records", len(records),
		"cells", len(result.Rows),
		"sinks", len(p.loaders),
		"duration", elapsed,
	)

	if p.alerter != nil {
		if err := p.alerter.Alert(ctx, result); err != nil {
			p.logger.Warn("alert dispatch failed", "error", err)
		}
	}

	return result, nil
}

func yearAttr(y *int) any {
	if y == nil {
		return "all"
	}
	return *y
}
