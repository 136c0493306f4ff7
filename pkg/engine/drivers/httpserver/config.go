package httpserver

import (
	"net/url"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// Config describes a database served by a remote engine HTTP server.
type Config struct {
	Name     string
	URL      string // http(s)://host:port/database
	Token    string // optional bearer token
	ReadOnly bool
}

// FromMap creates a validated Config from a generic config map.
func FromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{
		Name:     drivers.StringField(raw, "name"),
		URL:      drivers.StringField(raw, "url"),
		Token:    drivers.StringField(raw, "token"),
		ReadOnly: true,
	}
	if v, ok := raw["read_only"].(bool); ok {
		cfg.ReadOnly = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Kind() models.SourceKind { return models.KindHTTPServer }

func (c *Config) Alias() string { return c.Name }

func (c *Config) Validate() error {
	if err := drivers.RequireIdentifier("name", c.Name); err != nil {
		return err
	}
	if err := drivers.RequireField("url", c.URL); err != nil {
		return err
	}

	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" {
		return apperrors.NewValidationError("url", "must be a valid URL with a host")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return apperrors.NewValidationError("url", "scheme must be http or https")
	}

	return drivers.ScreenField("token", c.Token)
}

func (c *Config) NeedsSecret() bool { return strings.TrimSpace(c.Token) != "" }

func (c *Config) SecretData() map[string]string {
	if !c.NeedsSecret() {
		return nil
	}
	return map[string]string{"token": c.Token}
}

func (c *Config) Redacted() map[string]string {
	return map[string]string{
		"name": c.Name,
		"url":  c.URL,
	}
}
