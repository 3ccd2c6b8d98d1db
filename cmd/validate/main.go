// Command validate checks a classified_cells CSV for structural and labelling
// integrity and, when given the input grid directory, re-runs the
// classification and compares it row by row with the file.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv output/classified_cells.csv \
//	  -data-root data/mock \
//	  -min-year 2000 -max-year 2030
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/couchcryptid/emissions-classifier/internal/adapter/csvfile"
	"github.com/couchcryptid/emissions-classifier/internal/adapter/gridfile"
	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/couchcryptid/emissions-classifier/internal/observability"
	"github.com/couchcryptid/emissions-classifier/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// options are the command-line inputs of one validation run.
type options struct {
	csvPath    string
	dataRoot   string
	minYear    int
	maxYear    int
	year       int // 0 means all years in the window
	smoothFrac float64
}

// csvRow is one parsed line of the output file.
type csvRow struct {
	line   int
	key    domain.CellKey
	labels map[domain.Gas]domain.Severity
	final  domain.Severity
	raw    []string
}

func main() {
	var o options
	flag.StringVar(&o.csvPath, "csv", "", "path to the classified cells CSV")
	flag.StringVar(&o.dataRoot, "data-root", "", "grid file directory to re-classify and compare (optional)")
	flag.IntVar(&o.minYear, "min-year", 2000, "first year of the window")
	flag.IntVar(&o.maxYear, "max-year", 2030, "last year of the window")
	flag.IntVar(&o.year, "year", 0, "single target year (0 for the whole window)")
	flag.Float64Var(&o.smoothFrac, "smooth-frac", 0.05, "trapezoid smoothing fraction used for the re-run")
	flag.Parse()

	if o.csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, o))
}

func run(out io.Writer, o options) int {
	fmt.Fprintln(out, "=== Classified Cells Validation ===")
	fmt.Fprintln(out)

	f, err := os.Open(o.csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open csv: %v\n", err)
		return 1
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read csv: %v\n", err)
		return 1
	}

	header := validateHeader(records)
	var rows []csvRow
	if header.passed() && len(records) > 0 {
		rows = parseRows(header, records[1:])
	}

	phases := []*phase{
		header,
		validateOrder(rows),
		validateLabels(rows),
		validateYearWindow(rows, o),
	}
	if o.dataRoot != "" {
		phases = append(phases, validateAgainstInputs(records, o))
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Fprintf(out, "  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Fprintf(out, "  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Fprintln(out, "\nAll checks passed.")
	return 0
}

func validateHeader(records [][]string) *phase {
	p := &phase{name: "Header schema"}
	if len(records) == 0 {
		p.errorf("file is empty, expected a header line")
		return p
	}
	if !slices.Equal(records[0], csvfile.Header()) {
		p.errorf("header = %v, want %v", records[0], csvfile.Header())
	}
	return p
}

// parseRows decodes data lines. Lines that fail to decode are recorded on
// the header phase so later phases only see well-formed rows.
func parseRows(header *phase, records [][]string) []csvRow {
	rows := make([]csvRow, 0, len(records))
	for i, rec := range records {
		line := i + 2
		r, err := parseRow(rec)
		if err != nil {
			header.errorf("line %d: %v", line, err)
			continue
		}
		r.line = line
		rows = append(rows, r)
	}
	return rows
}

func parseRow(rec []string) (csvRow, error) {
	r := csvRow{raw: rec, labels: make(map[domain.Gas]domain.Severity)}
	var err error
	if r.key.Lon, err = strconv.ParseFloat(rec[0], 64); err != nil {
		return r, fmt.Errorf("lon %q: %w", rec[0], err)
	}
	if r.key.Lat, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return r, fmt.Errorf("lat %q: %w", rec[1], err)
	}
	if r.key.Year, err = strconv.Atoi(rec[2]); err != nil {
		return r, fmt.Errorf("year %q: %w", rec[2], err)
	}
	for i, g := range domain.CanonicalGases {
		var s domain.Severity
		if err := s.UnmarshalText([]byte(rec[3+i])); err != nil {
			return r, fmt.Errorf("%s: %w", g.LabelColumn(), err)
		}
		if s.Valid() {
			r.labels[g] = s
		}
	}
	if err := r.final.UnmarshalText([]byte(rec[len(rec)-1])); err != nil {
		return r, fmt.Errorf("final_label: %w", err)
	}
	return r, nil
}

func validateOrder(rows []csvRow) *phase {
	p := &phase{name: "Row order and uniqueness"}
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		switch {
		case prev.key == cur.key:
			p.errorf("line %d: duplicate cell %v", cur.line, cur.key)
		case !prev.key.Less(cur.key):
			p.errorf("line %d: %v sorts before %v on line %d", cur.line, cur.key, prev.key, prev.line)
		}
	}
	return p
}

func validateLabels(rows []csvRow) *phase {
	p := &phase{name: "Final label is worst gas label"}
	for _, r := range rows {
		if !r.final.Valid() {
			p.errorf("line %d: final_label is empty", r.line)
			continue
		}
		if want := domain.WorstLabel(r.labels); r.final != want {
			p.errorf("line %d: final_label = %s, want %s", r.line, r.final, want)
		}
	}
	return p
}

func validateYearWindow(rows []csvRow, o options) *phase {
	p := &phase{name: "Years inside run window"}
	for _, r := range rows {
		y := r.key.Year
		if o.year != 0 && y != o.year {
			p.errorf("line %d: year %d, want only %d", r.line, y, o.year)
		}
		if y < o.minYear || y > o.maxYear {
			p.errorf("line %d: year %d outside [%d, %d]", r.line, y, o.minYear, o.maxYear)
		}
	}
	return p
}

// validateAgainstInputs re-classifies the grid files and compares the encoded
// result with the file line by line.
func validateAgainstInputs(records [][]string, o options) *phase {
	p := &phase{name: "Matches re-classification of inputs"}

	params := domain.Params{MinYear: o.minYear, MaxYear: o.maxYear, SmoothFrac: o.smoothFrac}
	if o.year != 0 {
		params.Year = &o.year
	}

	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetricsForTesting()
	ctx := context.Background()

	raw, err := gridfile.NewLoader(o.dataRoot, 4, logger, metrics).Extract(ctx)
	if err != nil {
		p.errorf("load inputs: %v", err)
		return p
	}
	rows, err := pipeline.NewTransformer(logger, metrics).Transform(ctx, raw, params)
	if err != nil {
		p.errorf("classify inputs: %v", err)
		return p
	}

	var buf bytes.Buffer
	if err := csvfile.Encode(&buf, rows); err != nil {
		p.errorf("encode: %v", err)
		return p
	}
	want, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		p.errorf("decode: %v", err)
		return p
	}

	if len(want) != len(records) {
		p.errorf("file has %d lines, re-classification has %d", len(records), len(want))
	}
	for i := 0; i < min(len(want), len(records)); i++ {
		if !slices.Equal(want[i], records[i]) {
			p.errorf("line %d: got %v, want %v", i+1, records[i], want[i])
		}
	}
	return p
}
