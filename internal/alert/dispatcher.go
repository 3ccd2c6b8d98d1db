// Package alert notifies subscribers when a classification run flags cells at
// or above a severity threshold.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/couchcryptid/emissions-classifier/internal/observability"
	"golang.org/x/sync/errgroup"
)

// DefaultTopCells is how many of the worst cells are listed in a message.
const DefaultTopCells = 5

// Notifier delivers one message to one recipient.
type Notifier interface {
	Send(ctx context.Context, subject, body, recipient string) error
}

// Failure records a recipient that could not be notified.
type Failure struct {
	Recipient string
	Err       error
}

// Report is the outcome of one dispatch.
type Report struct {
	Flagged int
	Worst   domain.Severity
	Sent    []string
	Failed  []Failure
}

// Dispatcher builds one alert per run and sends it to every recipient.
// It implements pipeline.Alerter.
type Dispatcher struct {
	notifier   Notifier
	recipients []string
	minLabel   domain.Severity
	topCells   int
	resolver   domain.PlaceResolver
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithResolver names the worst cells with a reverse geocoder.
func WithResolver(r domain.PlaceResolver) Option {
	return func(d *Dispatcher) { d.resolver = r }
}

// WithTopCells sets how many cells are listed in the message.
func WithTopCells(n int) Option {
	return func(d *Dispatcher) { d.topCells = n }
}

// NewDispatcher creates a Dispatcher alerting on rows whose final label is at
// least minLabel.
func NewDispatcher(n Notifier, recipients []string, minLabel domain.Severity, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier:   n,
		recipients: recipients,
		minLabel:   minLabel,
		topCells:   DefaultTopCells,
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Alert dispatches and folds per-recipient failures into one error.
func (d *Dispatcher) Alert(ctx context.Context, result domain.Result) error {
	rep, err := d.Dispatch(ctx, result)
	if err != nil {
		return err
	}
	if len(rep.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(rep.Failed))
	for i, f := range rep.Failed {
		errs[i] = fmt.Errorf("%s: %w", f.Recipient, f.Err)
	}
	return fmt.Errorf("%d of %d alerts failed: %w", len(rep.Failed), len(d.recipients), errors.Join(errs...))
}

// Dispatch sends the alert for result to every recipient concurrently. A
// failing recipient does not stop the others. Nothing is sent when no row
// reaches the threshold.
func (d *Dispatcher) Dispatch(ctx context.Context, result domain.Result) (Report, error) {
	flagged := d.flagged(result.Rows)
	if len(flagged) == 0 || len(d.recipients) == 0 {
		d.logger.Debug("no alert needed", "min_label", d.minLabel.String(), "flagged", len(flagged))
		return Report{}, nil
	}

	summary := Summary{
		GeneratedAt: result.GeneratedAt,
		Params:      result.Params,
		MinLabel:    d.minLabel,
		TotalCells:  len(result.Rows),
		Flagged:     len(flagged),
		Counts:      make(map[domain.Severity]int),
		Worst:       flagged[0].Final,
		Top:         d.describeTop(ctx, flagged),
	}
	for _, r := range flagged {
		summary.Counts[r.Final]++
	}
	subject, body := Compose(summary)

	rep := Report{Flagged: len(flagged), Worst: summary.Worst}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, rcpt := range d.recipients {
		g.Go(func() error {
			err := d.notifier.Send(ctx, subject, body, rcpt)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failed = append(rep.Failed, Failure{Recipient: rcpt, Err: err})
				d.metrics.AlertsSent.WithLabelValues("error").Inc()
				d.logger.Warn("alert delivery failed", "recipient", rcpt, "error", err)
				return nil
			}
			rep.Sent = append(rep.Sent, rcpt)
			d.metrics.AlertsSent.WithLabelValues("success").Inc()
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(rep.Sent)
	sort.Slice(rep.Failed, func(i, j int) bool { return rep.Failed[i].Recipient < rep.Failed[j].Recipient })

	d.logger.Info("alerts dispatched",
		"flagged", rep.Flagged,
		"worst", rep.Worst.String(),
		"sent", len(rep.Sent),
		"failed", len(rep.Failed),
	)
	return rep, nil
}

// flagged returns rows at or above the threshold, worst first, then in output order.
func (d *Dispatcher) flagged(rows []domain.Row) []domain.Row {
	var out []domain.Row
	for _, r := range rows {
		if r.Final >= d.minLabel {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Final != out[j].Final {
			return out[i].Final > out[j].Final
		}
		return out[i].Key.Less(out[j].Key)
	})
	return out
}

func (d *Dispatcher) describeTop(ctx context.Context, flagged []domain.Row) []Cell {
	n := max(0, min(d.topCells, len(flagged)))
	cells := make([]Cell, n)
	for i := range n {
		cells[i] = Cell{Row: flagged[i]}
		if d.resolver == nil {
			continue
		}
		lat, lon := domain.CellCenter(flagged[i].Key)
		place, err := d.resolver.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			d.logger.Debug("reverse geocode failed, using coordinates", "lat", lat, "lon", lon, "error", err)
			continue
		}
		cells[i].Place = place
	}
	return cells
}
