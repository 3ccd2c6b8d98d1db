package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/couchcryptid/emissions-classifier/internal/adapter/csvfile"
	"github.com/couchcryptid/emissions-classifier/internal/adapter/geojsonfile"
	"github.com/couchcryptid/emissions-classifier/internal/adapter/gridfile"
	kafkaadapter "github.com/couchcryptid/emissions-classifier/internal/adapter/kafka"
	"github.com/couchcryptid/emissions-classifier/internal/adapter/mapbox"
	"github.com/couchcryptid/emissions-classifier/internal/adapter/smtp"
	"github.com/couchcryptid/emissions-classifier/internal/adapter/sqlite"
	"github.com/couchcryptid/emissions-classifier/internal/alert"
	"github.com/couchcryptid/emissions-classifier/internal/config"
	"github.com/couchcryptid/emissions-classifier/internal/observability"
	"github.com/couchcryptid/emissions-classifier/internal/pipeline"
)

// app is the wired pipeline plus the resources to release on exit.
type app struct {
	pipeline *pipeline.Pipeline
	output   *csvfile.Writer
	closers  []io.Closer
	logger   *slog.Logger
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

// buildApp wires the extractor, transformer, enabled sinks and the optional
// alerter from cfg.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	a := &app{logger: logger, output: csvfile.NewWriter(cfg.OutputPath)}

	loaders := []pipeline.Loader{a.output}
	if cfg.GeoJSONPath != "" {
		loaders = append(loaders, geojsonfile.NewWriter(cfg.GeoJSONPath))
	}
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		loaders = append(loaders, store)
	}
	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
		a.closers = append(a.closers, w)
		loaders = append(loaders, w)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}

	var opts []pipeline.Option
	if cfg.AlertsEnabled() {
		var alertOpts []alert.Option
		// Initialize reverse geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
		if cfg.MapboxEnabled {
			client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
			alertOpts = append(alertOpts, alert.WithResolver(mapbox.NewCachedResolver(client, cfg.MapboxCacheSize, metrics)))
			metrics.GeocodeEnabled.Set(1)
			logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
		} else {
			logger.Info("mapbox geocoding disabled")
		}

		notifier := smtp.NewNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
		dispatcher := alert.NewDispatcher(notifier, cfg.AlertRecipients, cfg.AlertMinLabel, logger, metrics, alertOpts...)
		opts = append(opts, pipeline.WithAlerter(dispatcher))
		logger.Info("email alerts enabled", "recipients", len(cfg.AlertRecipients), "min_label", cfg.AlertMinLabel.String())
	}

	a.pipeline = pipeline.New(
		gridfile.NewLoader(cfg.DataRoot, cfg.ParseConcurrency, logger, metrics),
		pipeline.NewTransformer(logger, metrics),
		loaders,
		logger,
		metrics,
		opts...,
	)
	return a, nil
}
