package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Runner executes one classification run.
type Runner interface {
	Run(ctx context.Context, params domain.Params) (domain.Result, error)
}

// Scheduler re-runs the classification on a fixed interval.
type Scheduler struct {
	runner   Runner
	params   domain.Params
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler driven by clock.
func NewScheduler(r Runner, params domain.Params, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   r,
		params:   params,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Start runs immediately and then once per interval until ctx is cancelled.
// A failed run is logged and retried on the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)
	s.runOnce(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.Run(ctx, s.params); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "next_in", s.interval)
	}
}
