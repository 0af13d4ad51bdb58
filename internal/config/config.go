// Package config loads ledger.yaml with optional environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Business       BusinessConfig       `yaml:"business"`
	Database       DatabaseConfig       `yaml:"database"`
	Audit          AuditConfig          `yaml:"audit"`
	Logging        LoggingConfig        `yaml:"logging"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name string `yaml:"name"`
}

// DatabaseConfig locates the ledger database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// ReconciliationConfig tunes bank matching.
type ReconciliationConfig struct {
	MatchWindowDays int `yaml:"match_window_days"`
}

// Load reads a ledger.yaml file from disk and applies environment
// overrides. A .env file next to the process, if present, is loaded
// first; a missing one is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnv()
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{Name: businessName},
		Database: DatabaseConfig{Path: "ledger.db"},
		Audit:    AuditConfig{Dir: "logs"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Reconciliation: ReconciliationConfig{MatchWindowDays: 5},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LEDGERD_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LEDGERD_AUDIT_DIR"); v != "" {
		c.Audit.Dir = v
	}
	if v := os.Getenv("LEDGERD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LEDGERD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LEDGERD_MATCH_WINDOW_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			c.Reconciliation.MatchWindowDays = days
		}
	}
}
