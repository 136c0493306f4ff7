package attach

import (
	"context"

	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/logging"
	"github.com/skiff-data/skiff-engine/pkg/vault"
)

// CleanupCoordinator rolls back the partial effects of a failed
// connection attempt. Each step is attempted regardless of earlier
// step failures, and the coordinator never raises: rollback runs on
// paths that already carry the real error.
type CleanupCoordinator struct {
	vault  vault.Vault
	logger *zap.Logger
}

// NewCleanupCoordinator creates a coordinator over the vault.
func NewCleanupCoordinator(v vault.Vault, logger *zap.Logger) *CleanupCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupCoordinator{vault: v, logger: logger}
}

// Target names the artifacts one attempt may have created. Zero-value
// fields mean the artifact was never created and its step is skipped.
type Target struct {
	Alias          string
	SecretName     string // engine-level secret
	CredentialsRef string // vault reference
	SharedSecret   bool   // shared vault secrets are never rolled back
}

// Rollback removes whatever the failed attempt left behind: the
// catalog attachment, the engine secret, and the vault secret created
// for this attempt. Failures are logged and swallowed.
func (c *CleanupCoordinator) Rollback(ctx context.Context, h *engine.Handle, t Target) {
	if t.Alias != "" {
		if err := h.Exec(ctx, drivers.DetachStatement(t.Alias)); err != nil {
			c.logger.Debug("Rollback detach failed (source likely never attached)",
				zap.String("alias", t.Alias),
				zap.String("error", logging.SanitizeError(err)))
		}
	}

	if t.SecretName != "" {
		if err := h.Exec(ctx, drivers.DropSecretStatement(t.SecretName)); err != nil {
			c.logger.Warn("Rollback failed to drop engine secret",
				zap.String("secret_name", t.SecretName),
				zap.String("error", logging.SanitizeError(err)))
		}
	}

	if t.CredentialsRef != "" && !t.SharedSecret {
		if err := c.vault.Delete(ctx, t.CredentialsRef); err != nil {
			c.logger.Warn("Rollback failed to delete vault secret",
				zap.String("credentials_ref", t.CredentialsRef),
				zap.String("error", logging.SanitizeError(err)))
		}
	}
}
