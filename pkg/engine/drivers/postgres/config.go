package postgres

import (
	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// Config contains PostgreSQL-specific connection options. The engine
// reaches the server through its postgres extension; no Go-side
// postgres driver is involved.
type Config struct {
	Name     string // engine catalog alias
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
	ReadOnly bool
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int { return 5432 }

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string { return "require" }

// FromMap creates a validated Config from a generic config map.
func FromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{
		Name:     drivers.StringField(raw, "name"),
		Host:     drivers.StringField(raw, "host"),
		Port:     drivers.IntField(raw, "port"),
		Database: drivers.StringField(raw, "database"),
		User:     drivers.StringField(raw, "user"),
		Password: drivers.StringField(raw, "password"),
		SSLMode:  drivers.StringField(raw, "ssl_mode"),
		ReadOnly: drivers.BoolField(raw, "read_only"),
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = DefaultSSLMode()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Kind() models.SourceKind { return models.KindPostgres }

func (c *Config) Alias() string { return c.Name }

// Validate checks required fields and screens user-supplied values.
// Runs before any engine call.
func (c *Config) Validate() error {
	if err := drivers.RequireIdentifier("name", c.Name); err != nil {
		return err
	}
	if err := drivers.RequireField("host", c.Host); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return apperrors.NewValidationError("port", "must be between 1 and 65535")
	}
	if err := drivers.RequireField("database", c.Database); err != nil {
		return err
	}
	if err := drivers.RequireField("user", c.User); err != nil {
		return err
	}
	switch c.SSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return apperrors.NewValidationError("ssl_mode", "must be one of disable, require, verify-ca, verify-full")
	}
	return drivers.ScreenField("password", c.Password)
}

func (c *Config) NeedsSecret() bool { return true }

func (c *Config) SecretData() map[string]string {
	return map[string]string{
		"host":     c.Host,
		"database": c.Database,
		"user":     c.User,
		"password": c.Password,
	}
}

func (c *Config) Redacted() map[string]string {
	return map[string]string{
		"name":     c.Name,
		"host":     c.Host,
		"database": c.Database,
		"user":     c.User,
		"ssl_mode": c.SSLMode,
	}
}
