package mysql

import (
	"fmt"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

type driver struct{}

func (driver) Kind() models.SourceKind { return models.KindMySQL }

func (driver) Info() drivers.Info {
	return drivers.Info{
		Kind:        models.KindMySQL,
		DisplayName: "MySQL",
		Description: "Attach a MySQL or MariaDB database through the engine's mysql extension",
		Icon:        "mysql",
		NeedsSecret: true,
	}
}

func (driver) ParseConfig(raw map[string]any) (models.SourceConfig, error) {
	return FromMap(raw)
}

func (driver) SecretStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a mysql config")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE SECRET %s (", drivers.QuoteIdentifier(secretName))
	fmt.Fprintf(&b, "TYPE mysql, HOST %s, PORT %d, DATABASE %s, USER %s",
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
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a mysql config")
	}

	opts := []string{"TYPE mysql", "SECRET " + drivers.QuoteIdentifier(secretName)}
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
