package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/emissions-classifier/internal/adapter/httpadapter"
	"github.com/couchcryptid/emissions-classifier/internal/config"
	"github.com/couchcryptid/emissions-classifier/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/emissions-classifier/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var year int

	root := &cobra.Command{
		Use:   "classifier",
		Short: "Classify gridded emissions into air-quality severity classes.",
		Long: `classifier reads SRES-style 1x1 degree emission grids, converts cell totals
to areal density, labels every cell per gas with quantile-anchored fuzzy
classes, and writes the worst-case label per cell.

Settings come from environment variables (see DATA_ROOT, OUTPUT_PATH, ...);
flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("year") {
				cfg.TargetYear = &year
			}
			return cfg.Validate()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&cfg.DataRoot, "data-root", cfg.DataRoot, "directory holding the grid files")
	f.StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "CSV output path")
	f.IntVar(&cfg.MinYear, "min-year", cfg.MinYear, "first year of the window (inclusive)")
	f.IntVar(&cfg.MaxYear, "max-year", cfg.MaxYear, "last year of the window (inclusive)")
	f.IntVar(&year, "year", 0, "classify only this year")
	f.Float64Var(&cfg.SmoothFrac, "smooth-frac", cfg.SmoothFrac, "trapezoid shoulder width as a fraction of the value range")
	f.StringVar(&cfg.GeoJSONPath, "geojson", cfg.GeoJSONPath, "optional GeoJSON output path")
	f.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "optional SQLite database path")

	root.AddCommand(newRunCmd(cfg), newServeCmd(cfg))
	return root
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one classification and exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
			a, err := buildApp(ctx, cfg, logger, observability.NewMetrics())
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.pipeline.Run(ctx, cfg.Params())
			if err != nil {
				return err
			}
			logger.Info("classification written", "output", a.output.Path(), "cells", len(result.Rows))
			return nil
		},
	}
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Classify on a schedule and serve health and metrics endpoints.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
			a, err := buildApp(ctx, cfg, logger, observability.NewMetrics())
			if err != nil {
				return err
			}
			defer a.close()

			srv := httpadapter.NewServer(cfg.HTTPAddr, a.pipeline, logger)
			sched := pipeline.NewScheduler(a.pipeline, cfg.Params(), cfg.ScheduleInterval, clockwork.NewRealClock(), logger)

			// Start HTTP server.
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
				}
			}()

			// Start scheduled classification.
			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := sched.Start(ctx); err != nil {
					logger.Error("scheduler error", "error", err)
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			select {
			case <-done:
			case <-shutdownCtx.Done():
				logger.Warn("classification run still in progress at shutdown")
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "listen address for health and metrics")
	cmd.Flags().DurationVar(&cfg.ScheduleInterval, "interval", cfg.ScheduleInterval, "time between classification runs")
	return cmd
}
