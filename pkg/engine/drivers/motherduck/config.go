package motherduck

import (
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// Config contains MotherDuck connection options. One account groups
// many databases; each attached database is its own record, all
// sharing the account token.
type Config struct {
	Name     string // engine catalog alias
	Database string // MotherDuck database name within the account
	Token    string // account service token
}

// FromMap creates a validated Config from a generic config map.
func FromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{
		Name:     drivers.StringField(raw, "name"),
		Database: drivers.StringField(raw, "database"),
		Token:    drivers.StringField(raw, "token"),
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Database
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Kind() models.SourceKind { return models.KindMotherDuck }

func (c *Config) Alias() string { return c.Name }

func (c *Config) Validate() error {
	if err := drivers.RequireIdentifier("name", c.Name); err != nil {
		return err
	}
	if err := drivers.RequireIdentifier("database", c.Database); err != nil {
		return err
	}
	return drivers.RequireField("token", c.Token)
}

func (c *Config) NeedsSecret() bool { return true }

func (c *Config) SecretData() map[string]string {
	return map[string]string{"token": c.Token}
}

func (c *Config) Redacted() map[string]string {
	return map[string]string{
		"name":     c.Name,
		"database": c.Database,
	}
}
