package gridfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/couchcryptid/emissions-classifier/internal/observability"
	"golang.org/x/sync/errgroup"
)

// knownExts are the extensions tried first; if none match, every file is tried.
var knownExts = map[string]bool{
	".txt": true,
	".dat": true,
	".csv": true,
	".asc": true,
}

// Loader reads every grid file under a root directory.
// It implements pipeline.Extractor.
type Loader struct {
	root        string
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewLoader creates a Loader parsing up to concurrency files at a time.
func NewLoader(root string, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{
		root:        root,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Extract parses all candidate files and concatenates their records in path
// order. A file that fails to parse is skipped as a whole. It is an error if
// the root is missing or no file yields any record.
func (l *Loader) Extract(ctx context.Context) ([]domain.EmissionRecord, error) {
	files, err := ListFiles(l.root)
	if err != nil {
		return nil, err
	}

	parts := make([][]domain.EmissionRecord, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := ParseFile(path)
			if err != nil {
				// Isolate the failure: the file is skipped, the batch continues.
				l.logger.Warn("skipping unparsable grid file", "path", path, "error", err)
				l.metrics.FilesSkipped.Inc()
				return nil
			}
			if len(records) == 0 {
				l.logger.Debug("grid file has no usable records", "path", path)
				l.metrics.FilesSkipped.Inc()
				return nil
			}
			l.metrics.FilesParsed.Inc()
			parts[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		out    []domain.EmissionRecord
		parsed int
	)
	for _, p := range parts {
		if len(p) > 0 {
			parsed++
			out = append(out, p...)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w under %s", domain.ErrNoParsableData, l.root)
	}

	l.metrics.RecordsParsed.Add(float64(len(out)))
	l.logger.Info("parsed grid files", "root", l.root, "files", parsed, "candidates", len(files), "records", len(out))
	return out, nil
}

// ParseFile opens and parses one grid file.
func ParseFile(path string) ([]domain.EmissionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// ListFiles walks root recursively and returns candidate data files sorted by
// path. Files with a known extension win; otherwise every regular file is a
// candidate.
func ListFiles(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDataRootNotFound, root)
		}
		return nil, fmt.Errorf("stat data root: %w", err)
	}

	var known, all []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		all = append(all, path)
		if knownExts[strings.ToLower(filepath.Ext(path))] {
			known = append(known, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk data root: %w", err)
	}

	files := known
	if len(files) == 0 {
		files = all
	}
	sort.Strings(files)
	return files, nil
}
