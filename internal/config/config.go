package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataRoot         string
	OutputPath       string
	MinYear          int
	MaxYear          int
	TargetYear       *int
	SmoothFrac       float64
	ParseConcurrency int

	// Optional sinks; empty path or false flag disables them.
	GeoJSONPath    string
	SQLitePath     string
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	ScheduleInterval time.Duration

	// Email alert configuration. Alerts are enabled when SMTPHost and at
	// least one recipient are set.
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	SMTPFrom        string
	AlertRecipients []string
	AlertMinLabel   domain.Severity

	// Mapbox reverse geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// AlertsEnabled reports whether an SMTP server and recipients are configured.
func (c *Config) AlertsEnabled() bool {
	return c.SMTPHost != "" && len(c.AlertRecipients) > 0
}

// Params returns the classification run parameters.
func (c *Config) Params() domain.Params {
	return domain.Params{
		MinYear:    c.MinYear,
		MaxYear:    c.MaxYear,
		Year:       c.TargetYear,
		SmoothFrac: c.SmoothFrac,
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	scheduleInterval, err := parseDuration("SCHEDULE_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	minYear, err := parseInt("MIN_YEAR", 2000)
	if err != nil {
		return nil, err
	}
	maxYear, err := parseInt("MAX_YEAR", 2030)
	if err != nil {
		return nil, err
	}
	targetYear, err := parseOptionalInt("TARGET_YEAR")
	if err != nil {
		return nil, err
	}
	concurrency, err := parseInt("PARSE_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	smtpPort, err := parseInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	smoothFrac, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("SMOOTH_FRAC", "0.05"), 64)
	if err != nil {
		return nil, errors.New("invalid SMOOTH_FRAC")
	}

	minLabel, err := domain.ParseSeverity(sharedcfg.EnvOrDefault("ALERT_MIN_LABEL", "Unhealthy"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_MIN_LABEL: %w", err)
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		DataRoot:         sharedcfg.EnvOrDefault("DATA_ROOT", "data"),
		OutputPath:       sharedcfg.EnvOrDefault("OUTPUT_PATH", "output/classified_cells.csv"),
		MinYear:          minYear,
		MaxYear:          maxYear,
		TargetYear:       targetYear,
		SmoothFrac:       smoothFrac,
		ParseConcurrency: concurrency,

		GeoJSONPath:    os.Getenv("GEOJSON_PATH"),
		SQLitePath:     os.Getenv("SQLITE_PATH"),
		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "classified-emissions"),

		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		ScheduleInterval: scheduleInterval,

		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPPort:        smtpPort,
		SMTPUser:        os.Getenv("SMTP_USER"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:        os.Getenv("SMTP_FROM"),
		AlertRecipients: splitList(os.Getenv("ALERT_RECIPIENTS")),
		AlertMinLabel:   minLabel,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Load does not call it; the CLI
// validates once flags have overridden environment values.
func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return errors.New("DATA_ROOT is required")
	}
	if c.OutputPath == "" {
		return errors.New("OUTPUT_PATH is required")
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.ParseConcurrency < 1 {
		return errors.New("PARSE_CONCURRENCY must be positive")
	}
	if c.ScheduleInterval <= 0 {
		return errors.New("SCHEDULE_INTERVAL must be positive")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if c.KafkaEnabled && c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}
	if c.AlertsEnabled() && c.SMTPFrom == "" {
		return errors.New("SMTP_FROM is required when alerts are enabled")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseOptionalInt(key string) (*int, error) {
	s := os.Getenv(key)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
