// Package config reads worldsim settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the worldsim runtime settings.
type Config struct {
	// Campaign
	Seed        string `env:"CAMPAIGN_SEED"` // Empty picks a random seed for new campaigns
	CampaignID  string `env:"CAMPAIGN_ID"    envDefault:"default"`
	CatalogPath string `env:"CATALOG_PATH"`  // Extra content merged over the embedded catalog
	Follower    bool   `env:"FOLLOWER"       envDefault:"false"`

	// Simulation
	Rounds        int           `env:"WORLD_ROUNDS"   envDefault:"10"`
	RoundDuration time.Duration `env:"ROUND_DURATION" envDefault:"30m"`
	RoundInterval time.Duration `env:"ROUND_INTERVAL" envDefault:"0s"`

	// Storage
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	DBPath       string `env:"DB_PATH"       envDefault:"data/campaign.db"`
	RedisURL     string `env:"REDIS_URL"     envDefault:"redis://localhost:6379/0"`

	// Observation API
	APIPort  int    `env:"API_PORT"  envDefault:"0"` // 0 disables the HTTP API
	AdminKey string `env:"ADMIN_KEY"`                // Bearer token for POST endpoints

	// Logging
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level `env:"LOG_LEVEL"   envDefault:"info"`
	LogFormat   string     `env:"LOG_FORMAT"` // json or text; empty follows Environment
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch c.StoreBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendRedis, c.StoreBackend)
	}
	if c.Rounds < 0 {
		return fmt.Errorf("WORLD_ROUNDS must not be negative, got %d", c.Rounds)
	}
	if c.RoundDuration < 0 {
		return fmt.Errorf("ROUND_DURATION must not be negative, got %s", c.RoundDuration)
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT out of range: %d", c.APIPort)
	}
	if c.CampaignID == "" {
		return fmt.Errorf("CAMPAIGN_ID must not be empty")
	}
	return nil
}

// JSONLogs reports whether logs should be written as JSON.
func (c *Config) JSONLogs() bool {
	switch strings.ToLower(c.LogFormat) {
	case "json":
		return true
	case "text":
		return false
	}
	return c.Environment == "production"
}
