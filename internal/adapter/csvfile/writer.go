// Package csvfile writes classification results as a flat CSV table.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
)

// Header returns the output column names.
func Header() []string {
	h := []string{"lon", "lat", "year"}
	for _, g := range domain.CanonicalGases {
		h = append(h, g.LabelColumn())
	}
	return append(h, "final_label")
}

// Writer implements pipeline.Loader for a CSV file on disk.
type Writer struct {
	path string
}

// NewWriter creates a Writer for path. Parent directories are created on write.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Name() string { return "csv" }

// Path returns the output file path.
func (w *Writer) Path() string { return w.path }

// Load replaces the output file with the rows of result. The file is written
// to a temporary sibling first and renamed into place.
func (w *Writer) Load(ctx context.Context, result domain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := Encode(tmp, result.Rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Encode writes the header and one record per row.
func Encode(out io.Writer, rows []domain.Row) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(r domain.Row) []string {
	rec := make([]string, 0, 4+len(domain.CanonicalGases))
	rec = append(rec,
		formatFloat(r.Key.Lon),
		formatFloat(r.Key.Lat),
		strconv.Itoa(r.Key.Year),
	)
	for _, g := range domain.CanonicalGases {
		s, _ := r.Label(g)
		rec = append(rec, s.String())
	}
	return append(rec, r.Final.String())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
