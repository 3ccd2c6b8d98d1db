// Command genmock writes synthetic SRES-style emission grid files for local
// runs and tests. Values follow a few Gaussian hotspots over a background so
// every severity class is populated.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -years 2000,2010,2020 \
//	  -lat -30:10 -lon -60:-30
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
)

// gasDef fixes the header spelling and units used for each gas so the files
// exercise the alias table and every unit scale.
type gasDef struct {
	token string
	units string
	scale float64 // typical cell total in the file's units
}

var gasDefs = map[domain.Gas]gasDef{
	domain.GasCO:    {token: "CO", units: "Tg/yr", scale: 0.02},
	domain.GasNMVOC: {token: "NMVOC", units: "kt per year", scale: 4},
	domain.GasNOx:   {token: "NO2", units: "Gg N/yr", scale: 1.5},
	domain.GasCH4:   {token: "CH_4", units: "t/yr", scale: 9000},
}

type grid struct {
	latMin, latMax int
	lonMin, lonMax int
}

type hotspot struct {
	lat, lon, sigma, peak float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for grid files")
	years := flag.String("years", "2000,2010,2020", "comma-separated years")
	latRange := flag.String("lat", "-30:10", "latitude range lo:hi (cell south edges)")
	lonRange := flag.String("lon", "-60:-30", "longitude range lo:hi (cell west edges)")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	ys, err := parseYears(*years)
	if err != nil {
		return err
	}
	var g grid
	if g.latMin, g.latMax, err = parseRange(*latRange); err != nil {
		return fmt.Errorf("-lat: %w", err)
	}
	if g.lonMin, g.lonMax, err = parseRange(*lonRange); err != nil {
		return fmt.Errorf("-lon: %w", err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	spots := hotspots(rng, g, 3)

	for _, year := range ys {
		for _, gas := range domain.CanonicalGases {
			path := filepath.Join(*out, fmt.Sprintf("%s_%d.txt", strings.ToLower(string(gas)), year))
			n, err := writeFile(path, gas, year, g, spots, rng)
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			log.Printf("%s: %d cells", path, n)
		}
	}
	return nil
}

func writeFile(path string, gas domain.Gas, year int, g grid, spots []hotspot, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, werr := writeGrid(f, gas, year, g, spots, rng)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return n, werr
}

// writeGrid emits one file: a free-text title, the three header lines, a
// column caption and one data line per cell.
func writeGrid(out io.Writer, gas domain.Gas, year int, g grid, spots []hotspot, rng *rand.Rand) (int, error) {
	def := gasDefs[gas]
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "Synthetic SRES-style emission grid (1x1 degree)\n")
	fmt.Fprintf(w, "Year: %d\n", year)
	fmt.Fprintf(w, "Gas: %s\n", def.token)
	fmt.Fprintf(w, "Units: %s\n", def.units)
	fmt.Fprintf(w, "lon, lat, value\n")

	growth := 1 + 0.02*float64(year-2000)
	n := 0
	for lat := g.latMin; lat <= g.latMax; lat++ {
		for lon := g.lonMin; lon <= g.lonMax; lon++ {
			v := def.scale * growth * intensity(float64(lat)+0.5, float64(lon)+0.5, spots) * (0.8 + 0.4*rng.Float64())
			fmt.Fprintf(w, "%d.0, %d.0, %s\n", lon, lat, strconv.FormatFloat(v, 'g', 6, 64))
			n++
		}
	}
	return n, w.Flush()
}

func hotspots(rng *rand.Rand, g grid, n int) []hotspot {
	spots := make([]hotspot, n)
	for i := range spots {
		spots[i] = hotspot{
			lat:   float64(g.latMin) + rng.Float64()*float64(g.latMax-g.latMin+1),
			lon:   float64(g.lonMin) + rng.Float64()*float64(g.lonMax-g.lonMin+1),
			sigma: 1.5 + 3*rng.Float64(),
			peak:  5 + 20*rng.Float64(),
		}
	}
	return spots
}

// intensity is a background of 1 plus the Gaussian contribution of every hotspot.
func intensity(lat, lon float64, spots []hotspot) float64 {
	v := 1.0
	for _, s := range spots {
		d2 := (lat-s.lat)*(lat-s.lat) + (lon-s.lon)*(lon-s.lon)
		v += s.peak * math.Exp(-d2/(2*s.sigma*s.sigma))
	}
	return v
}

func parseYears(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		out = append(out, y)
	}
	return out, nil
}

func parseRange(s string) (int, int, error) {
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("want lo:hi, got %q", s)
	}
	a, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(hi)
	if err != nil {
		return 0, 0, err
	}
	if a > b {
		return 0, 0, fmt.Errorf("empty or invalid range %q", s)
	}
	return a, b, nil
}
