package gsheet

import (
	"fmt"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

type driver struct{}

func (driver) Kind() models.SourceKind { return models.KindGSheet }

func (driver) Info() drivers.Info {
	return drivers.Info{
		Kind:        models.KindGSheet,
		DisplayName: "Google Sheets",
		Description: "Attach a Google Sheets spreadsheet as a queryable source",
		Icon:        "gsheet",
	}
}

func (driver) ParseConfig(raw map[string]any) (models.SourceConfig, error) {
	return FromMap(raw)
}

func (driver) SecretStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a gsheet config")
	}
	if !c.NeedsSecret() {
		return engine.Statement{}, nil
	}

	sql := fmt.Sprintf("CREATE SECRET %s (TYPE gsheet, PROVIDER access_token, TOKEN %s)",
		drivers.QuoteIdentifier(secretName), drivers.QuoteLiteral(c.Token))
	return engine.NewStatement(sql), nil
}

func (driver) AttachStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a gsheet config")
	}

	opts := []string{"TYPE gsheet"}
	if secretName != "" {
		opts = append(opts, "SECRET "+drivers.QuoteIdentifier(secretName))
	}

	sql := fmt.Sprintf("ATTACH %s AS %s (%s)",
		drivers.QuoteLiteral(c.SheetURL()), drivers.QuoteIdentifier(c.Name),
		strings.Join(opts, ", "))
	return engine.NewStatement(sql), nil
}

func (driver) VerificationBudget() drivers.VerificationBudget {
	return drivers.RoutineVerification()
}

func (driver) IsDuplicateAttachError(err error) bool {
	return engine.IsDuplicate(err)
}
