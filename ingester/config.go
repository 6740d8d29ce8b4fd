package ingester

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full ingest service configuration.
type Config struct {
	Listen              string `yaml:"listen"`
	DBPath              string `yaml:"db_path"`
	ObservabilityDBPath string `yaml:"observability_db_path"`
	JWTSecret           string `yaml:"jwt_secret"`
	MaxFileMB           int    `yaml:"max_file_mb"`
	TokenBudget         int    `yaml:"token_budget"`
	UsePDFLibrary       bool   `yaml:"use_pdf_library"`
	RateLimitPerMinute  int    `yaml:"rate_limit_per_minute"`
}

// DefaultConfig returns sane defaults. JWTSecret is intentionally empty:
// an empty secret runs the API in anonymous mode.
func DefaultConfig() *Config {
	return &Config{
		Listen:              ":8084",
		DBPath:              "ieppipe.db",
		ObservabilityDBPath: "ieppipe_obs.db",
		MaxFileMB:           50,
		TokenBudget:         1500,
		UsePDFLibrary:       true,
		RateLimitPerMinute:  60,
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	if c.TokenBudget <= 0 {
		return fmt.Errorf("token_budget must be > 0")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("rate_limit_per_minute must be > 0")
	}
	return nil
}

// MaxFileBytes returns max file size in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }
