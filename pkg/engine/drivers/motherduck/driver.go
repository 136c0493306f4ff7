package motherduck

import (
	"fmt"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

type driver struct{}

func (driver) Kind() models.SourceKind { return models.KindMotherDuck }

func (driver) Info() drivers.Info {
	return drivers.Info{
		Kind:        models.KindMotherDuck,
		DisplayName: "MotherDuck",
		Description: "Attach a database from a MotherDuck account",
		Icon:        "motherduck",
		NeedsSecret: true,
	}
}

func (driver) ParseConfig(raw map[string]any) (models.SourceConfig, error) {
	return FromMap(raw)
}

// The token goes into an engine secret, never into the md: URI, so
// attach statements stay loggable.
func (driver) SecretStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a motherduck config")
	}

	sql := fmt.Sprintf("CREATE SECRET %s (TYPE motherduck, TOKEN %s)",
		drivers.QuoteIdentifier(secretName), drivers.QuoteLiteral(c.Token))
	return engine.NewStatement(sql), nil
}

func (driver) AttachStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a motherduck config")
	}

	sql := fmt.Sprintf("ATTACH 'md:%s' AS %s (SECRET %s)",
		c.Database, drivers.QuoteIdentifier(c.Name), drivers.QuoteIdentifier(secretName))
	return engine.NewStatement(sql), nil
}

// Cross-account attaches settle slowest; MotherDuck confirms the
// catalog entry only after its side finishes replication handshake.
func (driver) VerificationBudget() drivers.VerificationBudget {
	return drivers.SlowVerification()
}

func (driver) IsDuplicateAttachError(err error) bool {
	return engine.IsDuplicate(err)
}
