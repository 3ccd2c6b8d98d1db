// Package geojsonfile writes classification results as a GeoJSON FeatureCollection
// of grid-cell polygons.
package geojsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Writer implements pipeline.Loader for a GeoJSON file on disk.
type Writer struct {
	path string
}

// NewWriter creates a Writer for path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Name() string { return "geojson" }

func (w *Writer) Load(ctx context.Context, result domain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fc, err := FeatureCollection(result)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feature collection: %w", err)
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
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write geojson: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// FeatureCollection converts every row into a polygon feature.
func FeatureCollection(result domain.Result) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(result.Rows)),
	}
	for _, r := range result.Rows {
		poly, err := domain.CellPolygon(r.Key)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         r.Key.ID(),
			Geometry:   poly,
			Properties: properties(r, result),
		})
	}
	return fc, nil
}

func properties(r domain.Row, result domain.Result) map[string]interface{} {
	props := map[string]interface{}{
		"lon":          r.Key.Lon,
		"lat":          r.Key.Lat,
		"year":         r.Key.Year,
		"final_label":  r.Final.String(),
		"generated_at": result.GeneratedAt,
	}
	for _, g := range domain.CanonicalGases {
		if s, ok := r.Label(g); ok {
			props[g.LabelColumn()] = s.String()
		}
	}
	return props
}
