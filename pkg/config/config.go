// Package config loads server configuration from config.yaml with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/skiff-data/skiff-engine/pkg/retry"
)

// Config holds all configuration for skiff-engine. Values come from
// config.yaml with environment variable overrides; secrets (PGPASSWORD,
// SKIFF_SECRETS_KEY) come from the environment only.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // set at load time from the build

	// Database is the control-plane PostgreSQL holding source records
	// and vaulted secrets.
	Database DatabaseConfig `yaml:"database"`

	// Engine is the embedded query engine sources are attached to.
	Engine EngineConfig `yaml:"engine"`

	// Retry bounds the attach and test pipelines.
	Retry RetryConfig `yaml:"retry"`

	// MigrationsPath is the directory holding SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// BootstrapPath is an optional YAML file of sources to attach at
	// startup. See LoadBootstrap.
	BootstrapPath string `yaml:"bootstrap_path" env:"BOOTSTRAP_PATH" env-default:"sources.yaml"`

	// SecretsKey encrypts vaulted credentials. A 32-byte key, base64
	// encoded (openssl rand -base64 32). The server fails to start
	// without it.
	SecretsKey string `yaml:"-" env:"SKIFF_SECRETS_KEY"`
}

// DatabaseConfig holds control-plane PostgreSQL configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"skiff"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // secret, env only
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"skiff_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// EngineConfig holds embedded engine settings.
type EngineConfig struct {
	// Driver is the database/sql driver name for the engine.
	Driver string `yaml:"driver" env:"ENGINE_DRIVER" env-default:"duckdb"`

	// Path is the engine database file. Empty means in-memory; an
	// in-memory engine loses every attachment on restart, which the
	// registry's warm start already assumes.
	Path string `yaml:"path" env:"ENGINE_PATH" env-default:""`
}

// RetryConfig holds the retry knobs for the connection pipelines.
type RetryConfig struct {
	AttachMaxAttempts int `yaml:"attach_max_attempts" env:"RETRY_ATTACH_MAX_ATTEMPTS" env-default:"5"`
	AttachDelayMs     int `yaml:"attach_delay_ms" env:"RETRY_ATTACH_DELAY_MS" env-default:"1000"`
	AttachTimeoutSec  int `yaml:"attach_timeout_sec" env:"RETRY_ATTACH_TIMEOUT_SEC" env-default:"30"`
	TestMaxAttempts   int `yaml:"test_max_attempts" env:"RETRY_TEST_MAX_ATTEMPTS" env-default:"2"`
	TestDelayMs       int `yaml:"test_delay_ms" env:"RETRY_TEST_DELAY_MS" env-default:"500"`
	TestTimeoutSec    int `yaml:"test_timeout_sec" env:"RETRY_TEST_TIMEOUT_SEC" env-default:"5"`
}

// AttachPolicy builds the attach retry policy from the configured knobs.
func (c *RetryConfig) AttachPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:        c.AttachMaxAttempts,
		Timeout:            time.Duration(c.AttachTimeoutSec) * time.Second,
		Delay:              time.Duration(c.AttachDelayMs) * time.Millisecond,
		ExponentialBackoff: true,
	}
}

// TestPolicy builds the test-connection retry policy.
func (c *RetryConfig) TestPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.TestMaxAttempts,
		Timeout:     time.Duration(c.TestTimeoutSec) * time.Second,
		Delay:       time.Duration(c.TestDelayMs) * time.Millisecond,
	}
}

// Load reads configuration from config.yaml with environment variable
// overrides. The file is optional; without it, environment variables
// and defaults apply.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.SecretsKey == "" {
		return nil, fmt.Errorf("SKIFF_SECRETS_KEY is required (generate with: openssl rand -base64 32)")
	}
	return cfg, nil
}
