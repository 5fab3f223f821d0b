package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file, expands ${VAR} references,
// applies environment variable overrides, then fills defaults. An empty path
// skips the file and configures from environment alone.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000/api/racing-post"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = Duration(30 * time.Second)
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = []string{"gb", "ire"}
	}
	if cfg.Retry.InitialBackoff == 0 {
		cfg.Retry.InitialBackoff = Duration(60 * time.Second)
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = Duration(30 * time.Minute)
	}
	if cfg.Retry.MaxTotalWait == 0 {
		cfg.Retry.MaxTotalWait = Duration(23 * time.Hour)
	}
	if cfg.Coverage.Threshold == 0 {
		cfg.Coverage.Threshold = 80
	}
	if cfg.Scrape.RaceType == "" {
		cfg.Scrape.RaceType = "all"
	}
	if cfg.Scrape.Betfair == nil {
		cfg.Scrape.Betfair = boolPtr(true)
	}
	if cfg.Scrape.FetchStats == nil {
		cfg.Scrape.FetchStats = boolPtr(true)
	}
	if cfg.Scrape.FetchProfiles == nil {
		cfg.Scrape.FetchProfiles = boolPtr(true)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 4
	}
}

func validate(cfg *AppConfig) error {
	r := cfg.Retry
	if r.InitialBackoff > r.MaxBackoff {
		return fmt.Errorf("retry.initial_backoff %v exceeds retry.max_backoff %v",
			r.InitialBackoff.Std(), r.MaxBackoff.Std())
	}
	if r.MaxBackoff > r.MaxTotalWait {
		return fmt.Errorf("retry.max_backoff %v exceeds retry.max_total_wait %v",
			r.MaxBackoff.Std(), r.MaxTotalWait.Std())
	}
	if cfg.Coverage.Floor > cfg.Coverage.Threshold {
		return fmt.Errorf("coverage.floor %d exceeds coverage.threshold %d",
			cfg.Coverage.Floor, cfg.Coverage.Threshold)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
