// Package sqlite persists classification results in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/twpayne/go-geom/encoding/wkt"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS classification_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	generated_at TEXT    NOT NULL,
	min_year     INTEGER NOT NULL,
	max_year     INTEGER NOT NULL,
	target_year  INTEGER,
	smooth_frac  REAL    NOT NULL,
	cells        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cell_labels (
	lon         REAL    NOT NULL,
	lat         REAL    NOT NULL,
	year        INTEGER NOT NULL,
	co_label    TEXT,
	nmvoc_label TEXT,
	nox_label   TEXT,
	ch4_label   TEXT,
	final_label TEXT    NOT NULL,
	cell_wkt    TEXT    NOT NULL,
	run_id      INTEGER NOT NULL REFERENCES classification_runs(id),
	PRIMARY KEY (lon, lat, year)
);

CREATE INDEX IF NOT EXISTS idx_cell_labels_year ON cell_labels(year);
`

const upsertCell = `
INSERT INTO cell_labels (lon, lat, year, co_label, nmvoc_label, nox_label, ch4_label, final_label, cell_wkt, run_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (lon, lat, year) DO UPDATE SET
	co_label    = excluded.co_label,
	nmvoc_label = excluded.nmvoc_label,
	nox_label   = excluded.nox_label,
	ch4_label   = excluded.ch4_label,
	final_label = excluded.final_label,
	cell_wkt    = excluded.cell_wkt,
	run_id      = excluded.run_id`

// Run is one row of classification_runs.
type Run struct {
	ID          int64
	GeneratedAt time.Time
	Params      domain.Params
	Cells       int
}

// Store implements pipeline.Loader on a SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("sqlite store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Name() string { return "sqlite" }

// Load records the run and upserts every row in one transaction.
func (s *Store) Load(ctx context.Context, result domain.Result) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		var target any
		if result.Params.Year != nil {
			target = *result.Params.Year
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO classification_runs (generated_at, min_year, max_year, target_year, smooth_frac, cells)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			result.GeneratedAt.UTC().Format(time.RFC3339Nano),
			result.Params.MinYear, result.Params.MaxYear, target, result.Params.SmoothFrac, len(result.Rows),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		runID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("run id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, upsertCell)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range result.Rows {
			poly, err := domain.CellPolygon(r.Key)
			if err != nil {
				return err
			}
			cellWKT, err := wkt.Marshal(poly)
			if err != nil {
				return fmt.Errorf("encode cell wkt: %w", err)
			}
			_, err = stmt.ExecContext(ctx,
				r.Key.Lon, r.Key.Lat, r.Key.Year,
				label(r, domain.GasCO), label(r, domain.GasNMVOC), label(r, domain.GasNOx), label(r, domain.GasCH4),
				r.Final.String(), cellWKT, runID,
			)
			if err != nil {
				return fmt.Errorf("upsert cell %v: %w", r.Key, err)
			}
		}

		s.logger.Debug("sqlite run stored", "run_id", runID, "cells", len(result.Rows))
		return nil
	})
}

// Labels returns the stored rows for one year ordered by latitude, then longitude.
func (s *Store) Labels(ctx context.Context, year int) ([]domain.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lon, lat, year, co_label, nmvoc_label, nox_label, ch4_label, final_label
		 FROM cell_labels WHERE year = ? ORDER BY lat, lon`, year)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		var (
			r     domain.Row
			gases [4]sql.NullString
			final string
		)
		if err := rows.Scan(&r.Key.Lon, &r.Key.Lat, &r.Key.Year, &gases[0], &gases[1], &gases[2], &gases[3], &final); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		r.Labels = make(map[domain.Gas]domain.Severity)
		for i, g := range []domain.Gas{domain.GasCO, domain.GasNMVOC, domain.GasNOx, domain.GasCH4} {
			if !gases[i].Valid {
				continue
			}
			sev, err := domain.ParseSeverity(gases[i].String)
			if err != nil {
				return nil, err
			}
			r.Labels[g] = sev
		}
		if r.Final, err = domain.ParseSeverity(final); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRun returns the most recently stored run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var (
		run         Run
		generatedAt string
		target      sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, generated_at, min_year, max_year, target_year, smooth_frac, cells
		 FROM classification_runs ORDER BY id DESC LIMIT 1`,
	).Scan(&run.ID, &generatedAt, &run.Params.MinYear, &run.Params.MaxYear, &target, &run.Params.SmoothFrac, &run.Cells)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("no classification runs stored: %w", err)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query latest run: %w", err)
	}
	if run.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt); err != nil {
		return Run{}, fmt.Errorf("parse generated_at: %w", err)
	}
	if target.Valid {
		y := int(target.Int64)
		run.Params.Year = &y
	}
	return run, nil
}

func (s *Store) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("sqlite rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func label(r domain.Row, g domain.Gas) sql.NullString {
	s, ok := r.Label(g)
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: s.String(), Valid: true}
}
