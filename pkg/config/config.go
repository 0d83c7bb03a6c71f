// Package config loads the pipeline configuration from YAML with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full riskd configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Feeds   FeedsConfig   `yaml:"feeds"`
	Cache   CacheConfig   `yaml:"cache"`
	Risk    RiskConfig    `yaml:"risk"`
	Perf    PerfConfig    `yaml:"perf"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// FeedsConfig holds upstream endpoints and credentials. API keys come
// from the environment, never from the YAML file.
type FeedsConfig struct {
	Domain            string  `yaml:"domain"` // default sport slate, e.g. americanfootball_nfl
	SportsbookBaseURL string  `yaml:"sportsbook_base_url"`
	SportsbookKey     string  `yaml:"-"`
	SportsbookRPS     float64 `yaml:"sportsbook_rps"`
	ExchangeBaseURL   string  `yaml:"exchange_base_url"`
	ExchangeKey       string  `yaml:"-"`
	AMMBaseURL        string  `yaml:"amm_base_url"`
	AMMWallet         string  `yaml:"amm_wallet"`
}

// CacheConfig controls the odds cache lifecycle.
type CacheConfig struct {
	TTLSeconds   int `yaml:"ttl_seconds"`
	SweepSeconds int `yaml:"sweep_seconds"`
}

// RiskConfig tunes the risk engine.
type RiskConfig struct {
	ConcentrationThreshold float64 `yaml:"concentration_threshold"`
}

// PerfConfig sets the default performance-report window.
type PerfConfig struct {
	ConfigVersion int     `yaml:"config_version"`
	WindowDays    int     `yaml:"window_days"`
	BaselineUnits float64 `yaml:"baseline_units"` // flat benchmark net units per run
}

// StorageConfig points at the SQLite file, or ":memory:".
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// Load reads the YAML file at path and applies .env / environment
// overrides. A missing .env file is fine; a missing YAML file is not.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// CacheTTL returns the odds cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// CacheSweep returns the cache sweep interval.
func (c *Config) CacheSweep() time.Duration {
	return time.Duration(c.Cache.SweepSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPORTSBOOK_API_KEY"); v != "" {
		cfg.Feeds.SportsbookKey = v
	}
	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" {
		cfg.Feeds.ExchangeKey = v
	}
	if v := os.Getenv("AMM_WALLET"); v != "" {
		cfg.Feeds.AMMWallet = v
	}
	if v := os.Getenv("RISKD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RISKD_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	if cfg.Feeds.Domain == "" {
		cfg.Feeds.Domain = "americanfootball_nfl"
	}
	if cfg.Feeds.SportsbookRPS <= 0 {
		cfg.Feeds.SportsbookRPS = 10
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 60
	}
	if cfg.Cache.SweepSeconds <= 0 {
		cfg.Cache.SweepSeconds = 120
	}
	if cfg.Risk.ConcentrationThreshold <= 0 {
		cfg.Risk.ConcentrationThreshold = 0.5
	}
	if cfg.Perf.ConfigVersion <= 0 {
		cfg.Perf.ConfigVersion = 1
	}
	if cfg.Perf.WindowDays <= 0 {
		cfg.Perf.WindowDays = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "riskcore.db"
	}
}
