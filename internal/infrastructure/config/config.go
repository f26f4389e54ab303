package config

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/tracestat/internal/domain/interval"
	"github.com/GriffinCanCode/tracestat/internal/domain/parser"
)

// Default discovery patterns, matched against file base names
const (
	DefaultIntervalPattern = "*_log_rank_*{.csv,.csv.gz,.csv.zst}"
	DefaultTimingPattern   = "*_timings_*{.csv,.csv.gz,.csv.zst}"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Analysis  AnalysisConfig
	Discovery DiscoveryConfig
	Metrics   MetricsConfig
}

// ServerConfig holds report API configuration.
type ServerConfig struct {
	Port     string `envconfig:"PORT" default:"8000"`
	Host     string `envconfig:"HOST" default:"0.0.0.0"`
	DataRoot string `envconfig:"DATA_ROOT" default:"."`
	// CacheTTL keeps analyzed run reports for repeated requests; zero disables
	CacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"30s"`
	// CORSOrigins lists browser origins allowed to read reports
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// AnalysisConfig holds parsing and interval algebra settings.
type AnalysisConfig struct {
	Workers        int    `envconfig:"ANALYSIS_WORKERS" default:"8"`
	BoundaryPolicy string `envconfig:"BOUNDARY_POLICY" default:"inclusive"`
	EmptyKeys      string `envconfig:"EMPTY_KEYS" default:"retain"`
	MaxLineBytes   int    `envconfig:"MAX_LINE_BYTES" default:"16777216"`
}

// DiscoveryConfig holds the file name patterns of a run directory.
type DiscoveryConfig struct {
	IntervalPattern string `envconfig:"INTERVAL_PATTERN" default:"*_log_rank_*{.csv,.csv.gz,.csv.zst}"`
	TimingPattern   string `envconfig:"TIMING_PATTERN" default:"*_timings_*{.csv,.csv.gz,.csv.zst}"`
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	File string `envconfig:"METRICS_FILE" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			DataRoot:    ".",
			CacheTTL:    30 * time.Second,
			CORSOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
		Analysis: AnalysisConfig{
			Workers:        8,
			BoundaryPolicy: "inclusive",
			EmptyKeys:      "retain",
			MaxLineBytes:   parser.DefaultMaxLineBytes,
		},
		Discovery: DiscoveryConfig{
			IntervalPattern: DefaultIntervalPattern,
			TimingPattern:   DefaultTimingPattern,
		},
	}
}

// Validate checks values envconfig cannot check by type alone.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 1 {
		return errors.Newf("ANALYSIS_WORKERS must be positive, got %d", c.Analysis.Workers)
	}
	if c.Server.CacheTTL < 0 {
		return errors.Newf("REPORT_CACHE_TTL must not be negative, got %s", c.Server.CacheTTL)
	}
	if c.Analysis.MaxLineBytes < 1 {
		return errors.Newf("MAX_LINE_BYTES must be positive, got %d", c.Analysis.MaxLineBytes)
	}
	if len(c.Server.CORSOrigins) == 0 {
		return errors.New("CORS_ORIGINS must name at least one origin")
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.ParserOptions(); err != nil {
		return err
	}
	for name, p := range map[string]string{
		"INTERVAL_PATTERN": c.Discovery.IntervalPattern,
		"TIMING_PATTERN":   c.Discovery.TimingPattern,
	} {
		if p == "" || !doublestar.ValidatePattern(p) {
			return errors.Newf("%s is not a valid pattern: %q", name, p)
		}
	}
	return nil
}

// Policy returns the configured interval boundary policy.
func (c *Config) Policy() (interval.Policy, error) {
	return interval.ParsePolicy(c.Analysis.BoundaryPolicy)
}

// ParserOptions returns the configured parser options.
func (c *Config) ParserOptions() (parser.Options, error) {
	policy, err := parser.ParseEmptyKeyPolicy(c.Analysis.EmptyKeys)
	if err != nil {
		return parser.Options{}, err
	}
	return parser.Options{EmptyKeys: policy, MaxLineBytes: c.Analysis.MaxLineBytes}, nil
}

// Addr returns the report API listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
