package config

import (
	"time"

	"github.com/mfenwick/racecollect/internal/core/domain"
)

// Duration parses "60s"-style strings from both YAML and environment
// variables.
type Duration time.Duration

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.v2 unmarshalling.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler for env overrides.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// AppConfig is the top-level configuration, loaded from a YAML file with
// ${VAR} substitution, then overridden by environment variables.
type AppConfig struct {
	API      APIConfig      `yaml:"api"`
	Regions  []string       `yaml:"regions"  env:"REGIONS"`
	Retry    RetryConfig    `yaml:"retry"`
	Coverage CoverageConfig `yaml:"coverage"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
}

// APIConfig points at the racing scrape/persistence service.
type APIConfig struct {
	BaseURL string   `yaml:"base_url" env:"API_BASE_URL"`
	Timeout Duration `yaml:"timeout"  env:"API_TIMEOUT"`
}

// RetryConfig bounds one retried operation.
type RetryConfig struct {
	InitialBackoff Duration `yaml:"initial_backoff" env:"RETRY_INITIAL_BACKOFF"`
	MaxBackoff     Duration `yaml:"max_backoff"     env:"RETRY_MAX_BACKOFF"`
	MaxTotalWait   Duration `yaml:"max_total_wait"  env:"RETRY_MAX_TOTAL_WAIT"`
}

// CoverageConfig selects the BSP coverage policy.
type CoverageConfig struct {
	Threshold int `yaml:"threshold" env:"COVERAGE_THRESHOLD"`
	// Floor, when positive, switches to the strict policy: coverage below
	// it marks the whole run failed.
	Floor int `yaml:"floor" env:"COVERAGE_FLOOR"`
}

// ScrapeConfig carries the knobs forwarded on every scrape call.
type ScrapeConfig struct {
	RaceType      string `yaml:"race_type"      env:"SCRAPE_RACE_TYPE"`
	Betfair       *bool  `yaml:"betfair"        env:"SCRAPE_BETFAIR"`
	FetchStats    *bool  `yaml:"fetch_stats"    env:"SCRAPE_FETCH_STATS"`
	FetchProfiles *bool  `yaml:"fetch_profiles" env:"SCRAPE_FETCH_PROFILES"`
}

// ServerConfig holds the status server settings. Port 0 disables it.
type ServerConfig struct {
	Port int `yaml:"port" env:"STATUS_PORT"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"` // debug, info, warn, error
}

// DatabaseConfig configures the optional run-history store. Empty URL
// disables it.
type DatabaseConfig struct {
	URL      string `yaml:"url"       env:"DATABASE_URL"`
	MaxConns int    `yaml:"max_conns" env:"DATABASE_MAX_CONNS"`
}

// RedisConfig configures the optional failed-region queue. Empty URL
// disables it.
type RedisConfig struct {
	URL      string `yaml:"url"      env:"REDIS_URL"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
}

// RegionList converts the configured region codes, preserving order. Order
// is the processing order of every phase.
func (c *AppConfig) RegionList() []domain.Region {
	regions := make([]domain.Region, 0, len(c.Regions))
	for _, r := range c.Regions {
		regions = append(regions, domain.Region(r))
	}
	return regions
}
