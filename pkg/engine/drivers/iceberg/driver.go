package iceberg

import (
	"fmt"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

type driver struct{}

func (driver) Kind() models.SourceKind { return models.KindIceberg }

func (driver) Info() drivers.Info {
	return drivers.Info{
		Kind:        models.KindIceberg,
		DisplayName: "Iceberg REST Catalog",
		Description: "Attach an Apache Iceberg warehouse through a REST catalog endpoint",
		Icon:        "iceberg",
		NeedsSecret: true,
	}
}

func (driver) ParseConfig(raw map[string]any) (models.SourceConfig, error) {
	return FromMap(raw)
}

func (driver) SecretStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not an iceberg config")
	}
	if !c.NeedsSecret() {
		return engine.Statement{}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE SECRET %s (TYPE ICEBERG", drivers.QuoteIdentifier(secretName))
	switch c.Auth {
	case AuthOAuth2:
		fmt.Fprintf(&b, ", CLIENT_ID %s, CLIENT_SECRET %s",
			drivers.QuoteLiteral(c.ClientID), drivers.QuoteLiteral(c.ClientSecret))
		if c.OAuth2ServerURI != "" {
			fmt.Fprintf(&b, ", OAUTH2_SERVER_URI %s", drivers.QuoteLiteral(c.OAuth2ServerURI))
		}
	case AuthBearer:
		fmt.Fprintf(&b, ", TOKEN %s", drivers.QuoteLiteral(c.Token))
	}
	b.WriteString(")")
	return engine.NewStatement(b.String()), nil
}

func (driver) AttachStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not an iceberg config")
	}

	opts := []string{"TYPE iceberg", "ENDPOINT " + drivers.QuoteLiteral(c.Endpoint)}
	if secretName != "" {
		opts = append(opts, "SECRET "+drivers.QuoteIdentifier(secretName))
	}

	sql := fmt.Sprintf("ATTACH %s AS %s (%s)",
		drivers.QuoteLiteral(c.Warehouse), drivers.QuoteIdentifier(c.Name),
		strings.Join(opts, ", "))
	return engine.NewStatement(sql), nil
}

// Iceberg attaches are multi-step on the engine side (catalog handshake,
// warehouse resolution), so the catalog entry settles slower.
func (driver) VerificationBudget() drivers.VerificationBudget {
	return drivers.SlowVerification()
}

func (driver) IsDuplicateAttachError(err error) bool {
	return engine.IsDuplicate(err)
}
