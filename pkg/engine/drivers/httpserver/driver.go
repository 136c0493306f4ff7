package httpserver

import (
	"fmt"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

type driver struct{}

func (driver) Kind() models.SourceKind { return models.KindHTTPServer }

func (driver) Info() drivers.Info {
	return drivers.Info{
		Kind:        models.KindHTTPServer,
		DisplayName: "Engine HTTP Server",
		Description: "Attach a database served by a remote engine HTTP server",
		Icon:        "server",
	}
}

func (driver) ParseConfig(raw map[string]any) (models.SourceConfig, error) {
	return FromMap(raw)
}

func (driver) SecretStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a httpserver config")
	}
	if !c.NeedsSecret() {
		return engine.Statement{}, nil
	}

	sql := fmt.Sprintf("CREATE SECRET %s (TYPE HTTP, BEARER_TOKEN %s)",
		drivers.QuoteIdentifier(secretName), drivers.QuoteLiteral(c.Token))
	return engine.NewStatement(sql), nil
}

func (driver) AttachStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a httpserver config")
	}

	var opts []string
	if secretName != "" {
		opts = append(opts, "SECRET "+drivers.QuoteIdentifier(secretName))
	}
	if c.ReadOnly {
		opts = append(opts, "READ_ONLY")
	}

	sql := fmt.Sprintf("ATTACH %s AS %s", drivers.QuoteLiteral(c.URL), drivers.QuoteIdentifier(c.Name))
	if len(opts) > 0 {
		sql += " (" + strings.Join(opts, ", ") + ")"
	}
	return engine.NewStatement(sql), nil
}

func (driver) VerificationBudget() drivers.VerificationBudget {
	return drivers.RoutineVerification()
}

func (driver) IsDuplicateAttachError(err error) bool {
	return engine.IsDuplicate(err)
}
