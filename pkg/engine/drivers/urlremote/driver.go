package urlremote

import (
	"fmt"
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

type driver struct{}

func (driver) Kind() models.SourceKind { return models.KindURLRemote }

func (driver) Info() drivers.Info {
	return drivers.Info{
		Kind:        models.KindURLRemote,
		DisplayName: "Remote Database File",
		Description: "Attach a database file hosted over HTTPS or object storage (S3, GCS, Azure)",
		Icon:        "cloud",
	}
}

func (driver) ParseConfig(raw map[string]any) (models.SourceConfig, error) {
	return FromMap(raw)
}

func (driver) SecretStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a url-remote config")
	}
	if !c.NeedsSecret() {
		return engine.Statement{}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE SECRET %s (TYPE %s, KEY_ID %s, SECRET %s",
		drivers.QuoteIdentifier(secretName), c.secretType(),
		drivers.QuoteLiteral(c.KeyID), drivers.QuoteLiteral(c.Secret))
	if c.SessionToken != "" {
		fmt.Fprintf(&b, ", SESSION_TOKEN %s", drivers.QuoteLiteral(c.SessionToken))
	}
	if c.Region != "" {
		fmt.Fprintf(&b, ", REGION %s", drivers.QuoteLiteral(c.Region))
	}
	b.WriteString(")")
	return engine.NewStatement(b.String()), nil
}

func (driver) AttachStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return engine.Statement{}, apperrors.NewValidationError("config", "is not a url-remote config")
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

// The engine reports re-attaching the same remote file either as an
// alias conflict or as a file handle conflict; both are idempotent
// success for the same configuration.
func (driver) IsDuplicateAttachError(err error) bool {
	return engine.IsDuplicate(err)
}
