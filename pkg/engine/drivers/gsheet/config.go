package gsheet

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// spreadsheetURLPattern extracts the document ID from a full sheet URL.
var spreadsheetURLPattern = regexp.MustCompile(`docs\.google\.com/spreadsheets/d/([A-Za-z0-9_-]+)`)

// Config contains Google Sheets connection options. Public sheets
// attach without credentials through the export URL; private sheets
// need an access token exposed as an engine secret.
type Config struct {
	Name          string
	SpreadsheetID string
	Token         string // optional OAuth access token for private sheets
}

// FromMap creates a validated Config from a generic config map. The
// spreadsheet may be given as a bare ID or as a full sheet URL.
func FromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{
		Name:          drivers.StringField(raw, "name"),
		SpreadsheetID: drivers.StringField(raw, "spreadsheet_id"),
		Token:         drivers.StringField(raw, "token"),
	}

	if cfg.SpreadsheetID == "" {
		if u := drivers.StringField(raw, "url"); u != "" {
			if m := spreadsheetURLPattern.FindStringSubmatch(u); m != nil {
				cfg.SpreadsheetID = m[1]
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Kind() models.SourceKind { return models.KindGSheet }

func (c *Config) Alias() string { return c.Name }

func (c *Config) Validate() error {
	if err := drivers.RequireIdentifier("name", c.Name); err != nil {
		return err
	}
	if c.SpreadsheetID == "" {
		return apperrors.NewValidationError("spreadsheet_id", "is required (bare ID or sheet URL)")
	}
	if !regexp.MustCompile(`^[A-Za-z0-9_-]+$`).MatchString(c.SpreadsheetID) {
		return apperrors.NewValidationError("spreadsheet_id", "contains invalid characters")
	}
	return drivers.ScreenField("token", c.Token)
}

// ExportURL returns the CSV export endpoint for the spreadsheet, used
// when reading a public sheet without the sheets extension.
func (c *Config) ExportURL() string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", c.SpreadsheetID)
}

// SheetURL returns the canonical document URL the engine attaches.
func (c *Config) SheetURL() string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", c.SpreadsheetID)
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
		"name":           c.Name,
		"spreadsheet_id": c.SpreadsheetID,
	}
}
