package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGas(t *testing.T) {
	cases := map[string]Gas{
		"CO":    GasCO,
		" NOX ": GasNOx,
		"NO2":   GasNOx,
		"NOx":   GasNOx,
		"CH_4":  GasCH4,
		"NMVOC": GasNMVOC,
		"SO2":   Gas("SO2"),
		"nmvoc": Gas("nmvoc"),
		"BC_OC": Gas("BC_OC"),
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeGas(in), in)
	}
	assert.True(t, GasCH4.IsCanonical())
	assert.False(t, Gas("SO2").IsCanonical())
	assert.Equal(t, "NOx_label", GasNOx.LabelColumn())
}

func TestUnitScale(t *testing.T) {
	cases := []struct {
		line string
		want float64
	}{
		{"Units: MT per year", 1e9},
		{"units: Tg", 1e9},
		{"Units: Gg/yr", 1e6},
		{"UNITS : kt of NOx", 1e6},
		{"Units: t", 1e3},
		{"Units: tonnes", 1e3},
		{"Units: kg", 1.0},
		{"Units: mol", 1.0},
		{"Units: 1000 t", 1.0},
		{"", 1.0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UnitScale(tc.line), tc.line)
	}
}

func TestCellAreaKm2_Equator(t *testing.T) {
	want := EarthRadiusKm * EarthRadiusKm * math.Sin(math.Pi/180) * (math.Pi / 180)
	assert.InEpsilon(t, want, CellAreaKm2(0, 0), 1e-9)
	assert.InEpsilon(t, want, CellAreaKm2(-1, 10), 1e-9)
}

func TestCellAreaKm2_ShrinksTowardPoles(t *testing.T) {
	assert.Greater(t, CellAreaKm2(0, 0), CellAreaKm2(45, 0))
	assert.Greater(t, CellAreaKm2(45, 0), CellAreaKm2(88, 0))
}

func TestCellAreaKm2_WrapsDateline(t *testing.T) {
	assert.InEpsilon(t, CellAreaKm2(10, 0), CellAreaKm2(10, 179.5), 1e-9)
	assert.InEpsilon(t, CellAreaKm2(10, 0), CellAreaKm2(10, 180), 1e-9)
	assert.InEpsilon(t, CellAreaKm2(10, 0), CellAreaKm2(10, -180), 1e-9)
}

func TestCellAreaKm2_DegenerateIsFloored(t *testing.T) {
	assert.Equal(t, minCellAreaKm2, CellAreaKm2(90, 0))
	assert.Equal(t, minCellAreaKm2, CellAreaKm2(-95, 0))
}

func TestDensity(t *testing.T) {
	assert.InEpsilon(t, 1e6, Density(1, 1e9, 1000), 1e-12)
	assert.InEpsilon(t, 1/minCellAreaKm2, Density(1, 1, 0), 1e-12)
	assert.Equal(t, Density(1, 1, minCellAreaKm2), Density(1, 1, -3))
}

func TestNormalize_FiltersWindowAndGas(t *testing.T) {
	records := []EmissionRecord{
		{Lon: 0, Lat: 0, Value: 1, Year: 1999, Gas: GasCO, UnitScale: 1},
		{Lon: 0, Lat: 0, Value: 1, Year: 2000, Gas: "NOX", UnitScale: 1},
		{Lon: 0, Lat: 0, Value: 1, Year: 2010, Gas: "SO2", UnitScale: 1},
		{Lon: 0, Lat: 0, Value: 2, Year: 2030, Gas: GasCH4, UnitScale: 1e6},
		{Lon: 0, Lat: 0, Value: 1, Year: 2031, Gas: GasCO, UnitScale: 1},
	}

	out, err := Normalize(records, Params{MinYear: 2000, MaxYear: 2030, SmoothFrac: 0.05})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, GasNOx, out[0].Gas)
	assert.Equal(t, 2000, out[0].Year)
	assert.Equal(t, GasCH4, out[1].Gas)
	assert.InEpsilon(t, 2e6/CellAreaKm2(0, 0), out[1].DensKgKm2, 1e-12)
}

func TestNormalize_SingleYear(t *testing.T) {
	records := []EmissionRecord{
		{Year: 2010, Gas: GasCO, Value: 1, UnitScale: 1},
		{Year: 2020, Gas: GasCO, Value: 1, UnitScale: 1},
	}
	year := 2020
	out, err := Normalize(records, Params{MinYear: 2000, MaxYear: 2030, Year: &year})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2020, out[0].Year)

	missing := 2025
	_, err = Normalize(records, Params{MinYear: 2000, MaxYear: 2030, Year: &missing})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDataForYear))
	assert.Contains(t, err.Error(), "2025")
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, Params{MinYear: 2000, MaxYear: 2030, SmoothFrac: 0.05}.Validate())
	assert.ErrorIs(t, Params{MinYear: 2031, MaxYear: 2030, SmoothFrac: 0.05}.Validate(), ErrInvalidParams)
	assert.ErrorIs(t, Params{MinYear: 2000, MaxYear: 2030, SmoothFrac: 0}.Validate(), ErrInvalidParams)
	assert.ErrorIs(t, Params{MinYear: 2000, MaxYear: 2030, SmoothFrac: 1}.Validate(), ErrInvalidParams)
}

func TestAggregate_WorstCase(t *testing.T) {
	key := CellKey{Lon: -46, Lat: -23, Year: 2020}
	tables := []GasTable{
		{Gas: GasCO, Labels: []CellLabel{{Key: key, Label: Good}}},
		{Gas: GasNOx, Labels: []CellLabel{{Key: key, Label: Hazardous}}},
		{Gas: GasCH4, Labels: []CellLabel{{Key: key, Label: Moderate}}},
	}

	rows := Aggregate(tables)
	require.Len(t, rows, 1)
	assert.Equal(t, Hazardous, rows[0].Final)

	_, ok := rows[0].Label(GasNMVOC)
	assert.False(t, ok)
	co, ok := rows[0].Label(GasCO)
	assert.True(t, ok)
	assert.Equal(t, Good, co)
}

func TestAggregate_OuterJoinAndOrder(t *testing.T) {
	a := CellKey{Lon: 5, Lat: 1, Year: 2020}
	b := CellKey{Lon: -5, Lat: 1, Year: 2020}
	c := CellKey{Lon: 0, Lat: -10, Year: 2021}
	d := CellKey{Lon: 0, Lat: -10, Year: 2020}

	tables := []GasTable{
		{Gas: GasNOx, Labels: []CellLabel{{Key: c, Label: USG}, {Key: a, Label: Moderate}}},
		{Gas: GasCO, Labels: []CellLabel{{Key: b, Label: Unhealthy}, {Key: d, Label: Good}}},
	}

	rows := Aggregate(tables)
	keys := make([]CellKey, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	if diff := cmp.Diff([]CellKey{d, b, a, c}, keys); diff != "" {
		t.Fatalf("row order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Unhealthy, rows[1].Final)
	assert.Equal(t, Moderate, rows[2].Final)
}

func TestAggregate_DuplicateKeyKeepsMoreSevere(t *testing.T) {
	key := CellKey{Lon: 1, Lat: 1, Year: 2000}
	rows := Aggregate([]GasTable{{Gas: GasCO, Labels: []CellLabel{
		{Key: key, Label: VeryUnhealthy},
		{Key: key, Label: Moderate},
	}}})
	require.Len(t, rows, 1)
	assert.Equal(t, VeryUnhealthy, rows[0].Labels[GasCO])
}

func TestWorstLabel_EmptyDefaultsToGood(t *testing.T) {
	assert.Equal(t, Good, WorstLabel(nil))
	assert.Equal(t, Good, WorstLabel(map[Gas]Severity{GasCO: 0}))
}

func TestSeverity_Text(t *testing.T) {
	assert.Equal(t, "Very Unhealthy", VeryUnhealthy.String())
	assert.Equal(t, "", Severity(0).String())

	s, err := ParseSeverity("USG")
	require.NoError(t, err)
	assert.Equal(t, USG, s)

	_, err = ParseSeverity("Bad")
	assert.Error(t, err)

	var got Severity
	require.NoError(t, got.UnmarshalText([]byte("Hazardous")))
	assert.Equal(t, Hazardous, got)
}

func TestNewResult_UsesClock(t *testing.T) {
	at := time.Date(2030, time.January, 2, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })

	res := NewResult(nil, Params{MinYear: 2000, MaxYear: 2030})
	assert.Equal(t, at, res.GeneratedAt)
}

func TestCellPolygon(t *testing.T) {
	poly, err := CellPolygon(CellKey{Lon: -46, Lat: -23, Year: 2020})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, poly.Area(), 1e-12)
	assert.Equal(t, 5, poly.NumCoords())
}

func TestCellPolygon_ClampsAtPole(t *testing.T) {
	poly, err := CellPolygon(CellKey{Lon: 0, Lat: 89.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, poly.Area(), 1e-12)
}

func TestCellKeyID(t *testing.T) {
	assert.Equal(t, "2020|45.5|-10.5", CellKey{Lon: -10.5, Lat: 45.5, Year: 2020}.ID())
	assert.Equal(t, "1999|0.00001|-0.00001", CellKey{Lon: -0.00001, Lat: 0.00001, Year: 1999}.ID())
}
