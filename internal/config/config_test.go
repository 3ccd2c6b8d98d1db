package config

import (
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataRoot)
	assert.Equal(t, "output/classified_cells.csv", cfg.OutputPath)
	assert.Equal(t, 2000, cfg.MinYear)
	assert.Equal(t, 2030, cfg.MaxYear)
	assert.Nil(t, cfg.TargetYear)
	assert.InDelta(t, 0.05, cfg.SmoothFrac, 0)
	assert.Equal(t, 4, cfg.ParseConcurrency)
	assert.Empty(t, cfg.GeoJSONPath)
	assert.Empty(t, cfg.SQLitePath)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "classified-emissions", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 24*time.Hour, cfg.ScheduleInterval)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, domain.Unhealthy, cfg.AlertMinLabel)
	assert.False(t, cfg.AlertsEnabled())
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_ROOT", "/srv/sres")
	t.Setenv("OUTPUT_PATH", "/tmp/out.csv")
	t.Setenv("MIN_YEAR", "1990")
	t.Setenv("MAX_YEAR", "2100")
	t.Setenv("TARGET_YEAR", "2020")
	t.Setenv("SMOOTH_FRAC", "0.1")
	t.Setenv("PARSE_CONCURRENCY", "8")
	t.Setenv("GEOJSON_PATH", "/tmp/out.geojson")
	t.Setenv("SQLITE_PATH", "/tmp/out.db")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SCHEDULE_INTERVAL", "1h")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_FROM", "alerts@example.com")
	t.Setenv("ALERT_RECIPIENTS", "a@example.com, b@example.com,")
	t.Setenv("ALERT_MIN_LABEL", "Very Unhealthy")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/sres", cfg.DataRoot)
	assert.Equal(t, "/tmp/out.csv", cfg.OutputPath)
	assert.Equal(t, 1990, cfg.MinYear)
	assert.Equal(t, 2100, cfg.MaxYear)
	require.NotNil(t, cfg.TargetYear)
	assert.Equal(t, 2020, *cfg.TargetYear)
	assert.InDelta(t, 0.1, cfg.SmoothFrac, 0)
	assert.Equal(t, 8, cfg.ParseConcurrency)
	assert.Equal(t, "/tmp/out.geojson", cfg.GeoJSONPath)
	assert.Equal(t, "/tmp/out.db", cfg.SQLitePath)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Hour, cfg.ScheduleInterval)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AlertRecipients)
	assert.Equal(t, domain.VeryUnhealthy, cfg.AlertMinLabel)
	assert.True(t, cfg.AlertsEnabled())
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)

	p := cfg.Params()
	assert.Equal(t, 1990, p.MinYear)
	assert.Equal(t, 2020, *p.Year)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"SCHEDULE_INTERVAL", "0s", "SCHEDULE_INTERVAL"},
		{"MAPBOX_TIMEOUT", "bad", "MAPBOX_TIMEOUT"},
		{"MIN_YEAR", "two-thousand", "MIN_YEAR"},
		{"TARGET_YEAR", "20x0", "TARGET_YEAR"},
		{"SMOOTH_FRAC", "abc", "SMOOTH_FRAC"},
		{"PARSE_CONCURRENCY", "x", "PARSE_CONCURRENCY"},
		{"SMTP_PORT", "smtp", "SMTP_PORT"},
		{"ALERT_MIN_LABEL", "Terrible", "ALERT_MIN_LABEL"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidRunParams(t *testing.T) {
	tests := map[string]map[string]string{
		"inverted window":  {"MIN_YEAR": "2030", "MAX_YEAR": "2000"},
		"zero smoothing":   {"SMOOTH_FRAC": "0"},
		"smoothing of one": {"SMOOTH_FRAC": "1"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)
			err = cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidParams))
		})
	}
}

func TestValidate_ZeroConcurrency(t *testing.T) {
	t.Setenv("PARSE_CONCURRENCY", "0")
	cfg, err := Load()
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PARSE_CONCURRENCY")
}

func TestLoad_DefersRangeChecks(t *testing.T) {
	t.Setenv("SMOOTH_FRAC", "1.5")
	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.SmoothFrac = 0.1
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AlertsRequireSender(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("ALERT_RECIPIENTS", "ops@example.com")
	cfg, err := Load()
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_FROM")
}

func TestLoad_AlertsDisabledWithoutRecipients(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.AlertsEnabled())
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
