// Package common provides shared utilities for Stockfolio
package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite    = "sqlite"
	BackendSurrealDB = "surrealdb"
)

// Mark policies decide how a trade seeds a position's current value.
const (
	// MarkTradePrice marks the whole position at the trade price.
	MarkTradePrice = "trade_price"
	// MarkLastMark keeps the previous per-share mark, scaled to the new quantity.
	MarkLastMark = "last_mark"
)

// Config holds all configuration for Stockfolio
type Config struct {
	Environment string           `toml:"environment" yaml:"environment"`
	Server      ServerConfig     `toml:"server" yaml:"server"`
	Storage     StorageConfig    `toml:"storage" yaml:"storage"`
	Logging     LoggingConfig    `toml:"logging" yaml:"logging"`
	Auth        AuthConfig       `toml:"auth" yaml:"auth"`
	Accounting  AccountingConfig `toml:"accounting" yaml:"accounting"`
	Market      MarketConfig     `toml:"market" yaml:"market"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host      string  `toml:"host" yaml:"host"`
	Port      int     `toml:"port" yaml:"port"`
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"` // trade requests per second, 0 disables
	Burst     int     `toml:"burst" yaml:"burst"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend   string `toml:"backend" yaml:"backend"` // "sqlite" or "surrealdb"
	Path      string `toml:"path" yaml:"path"`       // SQLite database file
	Address   string `toml:"address" yaml:"address"` // SurrealDB RPC address
	Namespace string `toml:"namespace" yaml:"namespace"`
	Database  string `toml:"database" yaml:"database"`
	Username  string `toml:"username" yaml:"username"`
	Password  string `toml:"password" yaml:"password"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level" yaml:"level"`
	Format     string   `toml:"format" yaml:"format"` // "console" or "json"
	Outputs    []string `toml:"outputs" yaml:"outputs"`
	FilePath   string   `toml:"file_path" yaml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups" yaml:"max_backups"`
}

// AuthConfig holds JWT configuration.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret" yaml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry" yaml:"token_expiry"` // duration string, default "24h"

	// TrustUserHeader accepts X-Stockfolio-User-ID as the caller identity.
	// Only enable behind a gateway that sets the header itself.
	TrustUserHeader bool `toml:"trust_user_header" yaml:"trust_user_header"`
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// AccountingConfig tunes the trade path.
type AccountingConfig struct {
	MarkPolicy          string `toml:"mark_policy" yaml:"mark_policy"`
	RecentActivityLimit int    `toml:"recent_activity_limit" yaml:"recent_activity_limit"`
}

// MarketConfig configures the quote cache.
type MarketConfig struct {
	SeedExamples bool `toml:"seed_examples" yaml:"seed_examples"`

	// RefreshInterval re-marks every portfolio to cached quotes on a timer.
	// Empty or "0" disables the scheduler.
	RefreshInterval string `toml:"refresh_interval" yaml:"refresh_interval"`
}

// GetRefreshInterval returns the scheduler interval, or 0 when disabled.
func (c *MarketConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateLimit: 20,
			Burst:     40,
		},
		Storage: StorageConfig{
			Backend:   BackendSQLite,
			Path:      "data/stockfolio.db",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "stockfolio",
			Database:  "stockfolio",
			Username:  "root",
			Password:  "root",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Outputs:    []string{"console"},
			FilePath:   "./logs/stockfolio.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "24h",
		},
		Accounting: AccountingConfig{
			MarkPolicy:          MarkTradePrice,
			RecentActivityLimit: 20,
		},
		Market: MarketConfig{
			SeedExamples: true,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Files are merged in order; missing files are skipped. ".yaml"/".yml" files
// are parsed as YAML, everything else as TOML.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if isYAML(path) {
			err = yaml.Unmarshal(data, config)
		} else {
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// SaveToFile writes the configuration as TOML, or YAML for .yaml/.yml paths.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKFOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STOCKFOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STOCKFOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STOCKFOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("STOCKFOLIO_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("STOCKFOLIO_DB_PATH"); v != "" {
		config.Storage.Path = v
	}
	if v := os.Getenv("STOCKFOLIO_SURREAL_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("STOCKFOLIO_SURREAL_USER"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("STOCKFOLIO_SURREAL_PASS"); v != "" {
		config.Storage.Password = v
	}

	// Auth overrides
	if v := os.Getenv("STOCKFOLIO_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("STOCKFOLIO_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}

	if v := os.Getenv("STOCKFOLIO_MARK_POLICY"); v != "" {
		config.Accounting.MarkPolicy = strings.ToLower(v)
	}

	if v := os.Getenv("STOCKFOLIO_REFRESH_INTERVAL"); v != "" {
		config.Market.RefreshInterval = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path required for sqlite backend")
		}
	case BackendSurrealDB:
		if c.Storage.Address == "" {
			return fmt.Errorf("storage.address required for surrealdb backend")
		}
		if c.Storage.Namespace == "" || c.Storage.Database == "" {
			return fmt.Errorf("storage.namespace and storage.database required for surrealdb backend")
		}
	default:
		return fmt.Errorf("storage.backend must be 'sqlite' or 'surrealdb'")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Accounting.MarkPolicy != MarkTradePrice && c.Accounting.MarkPolicy != MarkLastMark {
		return fmt.Errorf("accounting.mark_policy must be 'trade_price' or 'last_mark'")
	}
	if c.Accounting.RecentActivityLimit <= 0 {
		return fmt.Errorf("accounting.recent_activity_limit must be positive")
	}
	if v := c.Market.RefreshInterval; v != "" && v != "0" {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("market.refresh_interval: %w", err)
		}
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Redacted returns the config as indented JSON with secrets masked.
func (c *Config) Redacted() string {
	cp := *c
	if cp.Auth.JWTSecret != "" {
		cp.Auth.JWTSecret = "****"
	}
	if cp.Storage.Password != "" {
		cp.Storage.Password = "****"
	}
	data, _ := json.MarshalIndent(cp, "", "  ")
	return string(data)
}
