package iceberg

import (
	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// AuthType selects how the engine authenticates against the Iceberg
// REST catalog.
type AuthType string

const (
	AuthOAuth2 AuthType = "oauth2"
	AuthBearer AuthType = "bearer"
	AuthNone   AuthType = "none"
)

// Config contains Iceberg REST catalog connection options.
type Config struct {
	Name      string
	Warehouse string
	Endpoint  string
	Auth      AuthType

	// oauth2
	ClientID        string
	ClientSecret    string
	OAuth2ServerURI string

	// bearer
	Token string
}

// FromMap creates a validated Config from a generic config map.
func FromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{
		Name:            drivers.StringField(raw, "name"),
		Warehouse:       drivers.StringField(raw, "warehouse"),
		Endpoint:        drivers.StringField(raw, "endpoint"),
		Auth:            AuthType(drivers.StringField(raw, "auth_type")),
		ClientID:        drivers.StringField(raw, "client_id"),
		ClientSecret:    drivers.StringField(raw, "client_secret"),
		OAuth2ServerURI: drivers.StringField(raw, "oauth2_server_uri"),
		Token:           drivers.StringField(raw, "token"),
	}
	if cfg.Auth == "" {
		cfg.Auth = AuthNone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Kind() models.SourceKind { return models.KindIceberg }

func (c *Config) Alias() string { return c.Name }

func (c *Config) Validate() error {
	if err := drivers.RequireIdentifier("name", c.Name); err != nil {
		return err
	}
	if err := drivers.RequireField("warehouse", c.Warehouse); err != nil {
		return err
	}
	if err := drivers.RequireField("endpoint", c.Endpoint); err != nil {
		return err
	}

	switch c.Auth {
	case AuthOAuth2:
		if err := drivers.RequireField("client_id", c.ClientID); err != nil {
			return err
		}
		if err := drivers.RequireField("client_secret", c.ClientSecret); err != nil {
			return err
		}
		if err := drivers.ScreenField("oauth2_server_uri", c.OAuth2ServerURI); err != nil {
			return err
		}
	case AuthBearer:
		if err := drivers.RequireField("token", c.Token); err != nil {
			return err
		}
	case AuthNone:
	default:
		return apperrors.NewValidationError("auth_type", "must be one of oauth2, bearer, none")
	}
	return nil
}

func (c *Config) NeedsSecret() bool { return c.Auth != AuthNone }

func (c *Config) SecretData() map[string]string {
	switch c.Auth {
	case AuthOAuth2:
		data := map[string]string{
			"client_id":     c.ClientID,
			"client_secret": c.ClientSecret,
		}
		if c.OAuth2ServerURI != "" {
			data["oauth2_server_uri"] = c.OAuth2ServerURI
		}
		return data
	case AuthBearer:
		return map[string]string{"token": c.Token}
	}
	return nil
}

func (c *Config) Redacted() map[string]string {
	out := map[string]string{
		"name":      c.Name,
		"warehouse": c.Warehouse,
		"endpoint":  c.Endpoint,
		"auth_type": string(c.Auth),
	}
	if c.ClientID != "" {
		out["client_id"] = c.ClientID
	}
	return out
}
