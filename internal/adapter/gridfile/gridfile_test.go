package gridfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/couchcryptid/emissions-classifier/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `SRES A2 scenario, gridded emissions
Year: 2020
Gas: NO2
Units: Gg per year per cell
lon, lat, value
-46.0, -23.0, 12.5
-45, -23, .5
10.5,45.25,1.5e2
this line is noise
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestLoader(root string) *Loader {
	return NewLoader(root, 2, slog.Default(), observability.NewMetricsForTesting())
}

func TestParse_HeaderAndDataLines(t *testing.T) {
	records, err := Parse(strings.NewReader(sampleFile))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, domain.EmissionRecord{
		Lon: -46, Lat: -23, Value: 12.5, Year: 2020, Gas: domain.GasNOx, UnitScale: 1e6,
	}, records[0])
	assert.InDelta(t, 0.5, records[1].Value, 0)
	assert.InDelta(t, 150, records[2].Value, 0)
	assert.InDelta(t, 45.25, records[2].Lat, 0)
}

func TestParse_CaseInsensitiveHeaders(t *testing.T) {
	records, err := Parse(strings.NewReader("YEAR:1999\ngas : CH_4\nUNITS: kt\n1,2,3\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1999, records[0].Year)
	assert.Equal(t, domain.GasCH4, records[0].Gas)
	assert.InDelta(t, 1e6, records[0].UnitScale, 0)
}

func TestParse_MissingHeaderYieldsNothing(t *testing.T) {
	tests := map[string]string{
		"no year":  "Gas: CO\nUnits: kg\n1,2,3\n",
		"no gas":   "Year: 2020\nUnits: kg\n1,2,3\n",
		"no cells": "Year: 2020\nGas: CO\nUnits: kg\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			records, err := Parse(strings.NewReader(content))
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestParse_MissingUnitsDefaultsToScaleOne(t *testing.T) {
	records, err := Parse(strings.NewReader("Year: 2020\nGas: CO\n1,2,3\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 1, records[0].UnitScale, 0)
}

func TestParse_ExponentOnlyAllowedInValue(t *testing.T) {
	records, err := Parse(strings.NewReader("Year: 2020\nGas: CO\n1e2,2,3\n.5,2,3\n1,2,3e-1\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 0.3, records[0].Value, 1e-15)
}

func TestParse_OverflowFailsWholeFile(t *testing.T) {
	_, err := Parse(strings.NewReader("Year: 2020\nGas: CO\n1,2,3\n1,2,1e999\n"))
	require.Error(t, err)
}

func TestListFiles_PrefersKnownExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b/grid.TXT", "")
	writeFile(t, dir, "a.dat", "")
	writeFile(t, dir, "readme.md", "")

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.dat"),
		filepath.Join(dir, "b", "grid.TXT"),
	}, files)
}

func TestListFiles_FallsBackToAllFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "co_2020", "")
	writeFile(t, dir, "sub/nox_2020.grid", "")

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestListFiles_MissingRoot(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, domain.ErrDataRootNotFound)
}

func TestLoader_SkipsBrokenFilesAndKeepsPathOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1_co.txt", "Year: 2020\nGas: CO\nUnits: kg\n1,1,1\n2,2,2\n")
	writeFile(t, dir, "2_broken.txt", "Year: 2020\nGas: CO\n1,1,1\n1,1,9e999\n")
	writeFile(t, dir, "3_ch4.txt", "Year: 2021\nGas: CH4\nUnits: kg\n3,3,3\n")

	records, err := newTestLoader(dir).Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.GasCO, records[0].Gas)
	assert.InDelta(t, 2, records[1].Value, 0)
	assert.Equal(t, domain.GasCH4, records[2].Gas)
}

func TestLoader_NoParsableData(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.txt", "nothing here\n")

	_, err := newTestLoader(dir).Extract(context.Background())
	require.ErrorIs(t, err, domain.ErrNoParsableData)
}

func TestLoader_MissingRoot(t *testing.T) {
	_, err := newTestLoader(filepath.Join(t.TempDir(), "absent")).Extract(context.Background())
	require.ErrorIs(t, err, domain.ErrDataRootNotFound)
}

func TestLoader_FiftyCellFile(t *testing.T) {
	var b strings.Builder
	b.WriteString("Year: 2020\nGas: CO\nUnits: kt\n")
	for i := range 50 {
		fmt.Fprintf(&b, "%d, -23, %d\n", -46+i, 100+16*i)
	}
	dir := t.TempDir()
	writeFile(t, dir, "co.txt", b.String())

	records, err := newTestLoader(dir).Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 50)
	for i, r := range records {
		assert.InDelta(t, float64(-46+i), r.Lon, 0)
		assert.InDelta(t, 1e6, r.UnitScale, 0)
	}
}
