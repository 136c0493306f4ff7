package urlremote

import (
	"net/url"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// Config describes a remote engine database file reached by URL:
// https-hosted files plus s3/gcs/azure object storage. Object-storage
// URLs may carry credentials, exposed to the engine as a typed secret;
// plain https URLs attach without one.
type Config struct {
	Name     string
	URL      string
	ReadOnly bool

	// Object storage credentials, all optional.
	KeyID        string
	Secret       string
	SessionToken string
	Region       string
}

// FromMap creates a validated Config from a generic config map.
// Remote files default to read-only; the engine cannot write through
// most of these transports anyway.
func FromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{
		Name:         drivers.StringField(raw, "name"),
		URL:          drivers.StringField(raw, "url"),
		ReadOnly:     true,
		KeyID:        drivers.StringField(raw, "key_id"),
		Secret:       drivers.StringField(raw, "secret"),
		SessionToken: drivers.StringField(raw, "session_token"),
		Region:       drivers.StringField(raw, "region"),
	}
	if v, ok := raw["read_only"].(bool); ok {
		cfg.ReadOnly = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Kind() models.SourceKind { return models.KindURLRemote }

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
	case "http", "https", "s3", "gs", "gcs", "az", "azure":
	default:
		return apperrors.NewValidationError("url", "scheme must be http(s), s3, gs, or az")
	}

	if c.Secret != "" && c.KeyID == "" {
		return apperrors.NewValidationError("key_id", "is required when a secret key is provided")
	}
	for field, v := range map[string]string{
		"key_id":        c.KeyID,
		"secret":        c.Secret,
		"session_token": c.SessionToken,
		"region":        c.Region,
	} {
		if err := drivers.ScreenField(field, v); err != nil {
			return err
		}
	}
	return nil
}

// secretType maps the URL scheme to the engine secret type, or ""
// when the transport needs no secret.
func (c *Config) secretType() string {
	u, _ := url.Parse(c.URL)
	switch strings.ToLower(u.Scheme) {
	case "s3":
		return "S3"
	case "gs", "gcs":
		return "GCS"
	case "az", "azure":
		return "AZURE"
	}
	return ""
}

func (c *Config) NeedsSecret() bool {
	return c.KeyID != "" && c.secretType() != ""
}

func (c *Config) SecretData() map[string]string {
	if !c.NeedsSecret() {
		return nil
	}
	data := map[string]string{
		"key_id": c.KeyID,
		"secret": c.Secret,
	}
	if c.SessionToken != "" {
		data["session_token"] = c.SessionToken
	}
	if c.Region != "" {
		data["region"] = c.Region
	}
	return data
}

func (c *Config) Redacted() map[string]string {
	out := map[string]string{
		"name": c.Name,
		"url":  c.URL,
	}
	if c.KeyID != "" {
		out["key_id"] = c.KeyID
	}
	if c.Region != "" {
		out["region"] = c.Region
	}
	return out
}
