package gridfile

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
)

var (
	yearRe  = regexp.MustCompile(`(?i)^year\s*:\s*(\d{4})`)
	gasRe   = regexp.MustCompile(`(?i)^gas\s*:\s*([A-Za-z0-9_]+)`)
	unitsRe = regexp.MustCompile(`(?i)^units\s*:`)

	// dataLineRe matches "lon, lat, value"; only the value may use a bare
	// leading dot or an exponent.
	dataLineRe = regexp.MustCompile(
		`^([+-]?\d+(?:\.\d*)?)\s*,\s*([+-]?\d+(?:\.\d*)?)\s*,\s*([+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?)$`,
	)
)

// header collects the metadata lines of one grid file.
type header struct {
	year    int
	hasYear bool
	gas     domain.Gas
	units   string
}

type cell struct {
	lon, lat, value float64
}

// Parse reads one SRES-style grid file. Lines that are neither a header nor a
// data line are skipped. A file without a year or gas yields no records.
// Any read or number conversion error fails the whole file.
func Parse(r io.Reader) ([]domain.EmissionRecord, error) {
	var (
		h     header
		cells []cell
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if m := yearRe.FindStringSubmatch(line); m != nil {
			h.year, _ = strconv.Atoi(m[1])
			h.hasYear = true
			continue
		}
		if m := gasRe.FindStringSubmatch(line); m != nil {
			h.gas = domain.NormalizeGas(m[1])
			continue
		}
		if unitsRe.MatchString(line) {
			h.units = line
			continue
		}

		m := dataLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		c, err := parseCell(m[1], m[2], m[3])
		if err != nil {
			return nil, fmt.Errorf("data line %q: %w", line, err)
		}
		cells = append(cells, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read grid file: %w", err)
	}

	if len(cells) == 0 || !h.hasYear || h.gas == "" {
		return nil, nil
	}

	scale := domain.UnitScale(h.units)
	records := make([]domain.EmissionRecord, len(cells))
	for i, c := range cells {
		records[i] = domain.EmissionRecord{
			Lon:       c.lon,
			Lat:       c.lat,
			Value:     c.value,
			Year:      h.year,
			Gas:       h.gas,
			UnitScale: scale,
		}
	}
	return records, nil
}

func parseCell(lonStr, latStr, valStr string) (cell, error) {
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return cell{}, err
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return cell{}, err
	}
	value, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return cell{}, err
	}
	return cell{lon: lon, lat: lat, value: value}, nil
}
