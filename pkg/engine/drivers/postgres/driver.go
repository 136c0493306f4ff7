package postgres

import (
	"fmt"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

type driver struct{}

func (driver) Kind() models.SourceKind { return models.KindPostgres }

func (driver) Info() drivers.Info {
	return drivers.Info{
		Kind:        models.KindPostgres,
		DisplayName: "PostgreSQL",
		Description: "Attach a PostgreSQL 12+ database through the engine's postgres extension",
		Icon:        "postgres",
		NeedsSecret: true,
	}
}

func (driver) ParseConfig(raw map[string]any) (models.SourceConfig, error) {
	return FromMap(raw)
}

// SecretStatement exposes the server credentials to the engine under a
// generated, collision-resistant name. The attach statement references
// the secret by name instead of carrying credentials inline.
func (driver) SecretStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a postgres config")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE SECRET %s (", drivers.QuoteIdentifier(secretName))
	fmt.Fprintf(&b, "TYPE postgres, HOST %s, PORT %d, DATABASE %s, USER %s",
		drivers.QuoteLiteral(c.Host), c.Port,
		drivers.QuoteLiteral(c.Database), drivers.QuoteLiteral(c.User))
	if c.Password != "" {
		fmt.Fprintf(&b, ", PASSWORD %s", drivers.QuoteLiteral(c.Password))
	}
	b.WriteString(")")
	return engine.NewStatement(b.String()), nil
}

func (driver) AttachStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a postgres config")
	}

	opts := []string{"TYPE postgres", "SECRET " + drivers.QuoteIdentifier(secretName)}
	if c.SSLMode != "" {
		opts = append(opts, "SSLMODE "+drivers.QuoteLiteral(c.SSLMode))
	}
	if c.ReadOnly {
		opts = append(opts, "READ_ONLY")
	}

	sql := fmt.Sprintf("ATTACH '' AS %s (%s)",
		drivers.QuoteIdentifier(c.Name), strings.Join(opts, ", "))
	return engine.NewStatement(sql), nil
}

func (driver) VerificationBudget() drivers.VerificationBudget {
	return drivers.RoutineVerification()
}

func (driver) IsDuplicateAttachError(err error) bool {
	return engine.IsDuplicate(err)
}
