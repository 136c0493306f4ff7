// Package services implements the connection lifecycle: attaching
// external sources to the embedded engine, verifying them, and
// tearing them down without leaving secrets behind.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/attach"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/logging"
	"github.com/skiff-data/skiff-engine/pkg/metadata"
	"github.com/skiff-data/skiff-engine/pkg/models"
	"github.com/skiff-data/skiff-engine/pkg/registry"
	"github.com/skiff-data/skiff-engine/pkg/retry"
	"github.com/skiff-data/skiff-engine/pkg/vault"
)

// ConnectionService defines the connection lifecycle operations.
type ConnectionService interface {
	// Add creates a source record and runs the attach pipeline. The
	// record is returned even when attachment fails; its state and the
	// returned error describe the outcome.
	Add(ctx context.Context, kind models.SourceKind, displayName string, config map[string]any) (*models.DataSource, error)

	// TestConnection attaches under a throwaway alias, confirms the
	// catalog entry, and tears everything down. Nothing is persisted.
	TestConnection(ctx context.Context, kind models.SourceKind, config map[string]any) error

	// Reconnect re-runs the attach pipeline for an existing source.
	// newSecret, when non-nil, replaces the stored credential material.
	Reconnect(ctx context.Context, id uuid.UUID, newSecret map[string]string) (*models.DataSource, error)

	// Disconnect detaches a connected source but keeps its record and
	// vaulted credentials for later reconnection.
	Disconnect(ctx context.Context, id uuid.UUID) (*models.DataSource, error)

	// Remove detaches (if needed) and deletes the record and its
	// non-shared vault secret.
	Remove(ctx context.Context, id uuid.UUID) error

	// Get returns one source.
	Get(ctx context.Context, id uuid.UUID) (*models.DataSource, error)

	// List returns every source, ordered by creation time.
	List(ctx context.Context) ([]*models.DataSource, error)
}

type connectionService struct {
	registry  *registry.Registry
	pool      *engine.Pool
	vault     vault.Vault
	guard     *attach.RaceGuard
	poller    *attach.VerificationPoller
	cleanup   *attach.CleanupCoordinator
	refresher *metadata.Refresher
	logger    *zap.Logger

	attachPolicy retry.Policy
	testPolicy   retry.Policy
}

// Option overrides a pipeline default.
type Option func(*connectionService)

// WithAttachPolicy overrides the retry policy used by Add and Reconnect.
func WithAttachPolicy(p retry.Policy) Option {
	return func(s *connectionService) { s.attachPolicy = p }
}

// WithTestPolicy overrides the retry policy used by TestConnection.
func WithTestPolicy(p retry.Policy) Option {
	return func(s *connectionService) { s.testPolicy = p }
}

// NewConnectionService wires the connection pipeline.
func NewConnectionService(
	reg *registry.Registry,
	pool *engine.Pool,
	v vault.Vault,
	refresher *metadata.Refresher,
	logger *zap.Logger,
	opts ...Option,
) ConnectionService {
	s := &connectionService{
		registry:     reg,
		pool:         pool,
		vault:        v,
		guard:        attach.NewRaceGuard(),
		poller:       attach.NewVerificationPoller(logger),
		cleanup:      attach.NewCleanupCoordinator(v, logger),
		refresher:    refresher,
		logger:       logger,
		attachPolicy: retry.AttachPolicy(),
		testPolicy:   retry.TestPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *connectionService) Add(ctx context.Context, kind models.SourceKind, displayName string, config map[string]any) (*models.DataSource, error) {
	driver, err := drivers.Get(kind)
	if err != nil {
		return nil, apperrors.NewValidationError("kind", fmt.Sprintf("is not supported: %s", kind))
	}

	cfg, err := driver.ParseConfig(config)
	if err != nil {
		return nil, err
	}

	// The alias slot is what actually excludes a concurrent duplicate
	// Add (or a Test probe) for the same target; the record slot below
	// is fresh and covers operations that arrive by id mid-attach.
	slot := aliasSlot(kind, cfg.Alias())
	if err := s.guard.Acquire(slot); err != nil {
		return nil, err
	}
	defer s.guard.Release(slot)

	if _, _, err := s.registry.GetByAlias(cfg.Alias()); err == nil {
		return nil, fmt.Errorf("source %q: %w", cfg.Alias(), apperrors.ErrConflict)
	}

	if displayName == "" {
		displayName = cfg.Alias()
	}

	now := time.Now()
	ds := &models.DataSource{
		ID:          uuid.New(),
		Kind:        kind,
		DisplayName: displayName,
		State:       models.StateConnecting,
		Config:      cfg,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.guard.Acquire(sourceSlot(ds.ID)); err != nil {
		return nil, err
	}
	defer s.guard.Release(sourceSlot(ds.ID))

	stored := storedConfig(config, cfg)
	if err := s.registry.Create(ctx, ds, stored); err != nil {
		return nil, err
	}

	if err := s.runAttach(ctx, ds, cfg, stored, s.attachPolicy); err != nil {
		return ds.Clone(), err
	}
	return ds.Clone(), nil
}

func (s *connectionService) TestConnection(ctx context.Context, kind models.SourceKind, config map[string]any) error {
	driver, err := drivers.Get(kind)
	if err != nil {
		return apperrors.NewValidationError("kind", fmt.Sprintf("is not supported: %s", kind))
	}

	// Parse once for validation errors before touching the engine.
	requested, err := driver.ParseConfig(config)
	if err != nil {
		return err
	}

	// The probe runs under a throwaway alias, but the slot is the
	// requested one: a test and an attach for the same target must not
	// run their pipelines concurrently.
	slot := aliasSlot(kind, requested.Alias())
	if err := s.guard.Acquire(slot); err != nil {
		return err
	}
	defer s.guard.Release(slot)

	// Re-parse under a throwaway alias so the probe cannot collide
	// with a real attachment.
	probe := make(map[string]any, len(config)+1)
	for k, v := range config {
		probe[k] = v
	}
	probe["name"] = fmt.Sprintf("skiff_test_%s", uuid.NewString()[:8])

	cfg, err := driver.ParseConfig(probe)
	if err != nil {
		return err
	}

	return s.pool.WithConn(ctx, func(ctx context.Context, h *engine.Handle) error {
		var secretName string
		defer func() {
			s.cleanup.Rollback(ctx, h, attach.Target{
				Alias:      cfg.Alias(),
				SecretName: secretName,
			})
		}()

		secretName, err = s.createEngineSecret(ctx, h, driver, cfg)
		if err != nil {
			return s.classifyAttachError(kind, cfg.Alias(), err)
		}

		attachErr := retry.Do(ctx, s.testPolicy, func(ctx context.Context) error {
			stmt, err := driver.AttachStatement(cfg, secretName)
			if err != nil {
				return err
			}
			return h.Exec(ctx, stmt)
		})
		if attachErr != nil && !driver.IsDuplicateAttachError(attachErr) {
			return s.classifyAttachError(kind, cfg.Alias(), attachErr)
		}

		if err := s.poller.Confirm(ctx, h, cfg.Alias(), driver.VerificationBudget()); err != nil {
			return err
		}

		s.logger.Info("Connection test succeeded", zap.String("kind", string(kind)))
		return nil
	})
}

func (s *connectionService) Reconnect(ctx context.Context, id uuid.UUID, newSecret map[string]string) (*models.DataSource, error) {
	ds, stored, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Acquire(sourceSlot(id)); err != nil {
		return nil, err
	}
	defer s.guard.Release(sourceSlot(id))

	if ds.State == models.StateConnected {
		// Already attached; reconnecting a healthy source is a no-op.
		return ds, nil
	}

	secretData := newSecret
	if secretData == nil && ds.CredentialsRef != "" {
		payload, err := s.vault.Get(ctx, ds.CredentialsRef)
		if err != nil {
			if errors.Is(err, apperrors.ErrVaultKeyMismatch) || errors.Is(err, apperrors.ErrNotFound) {
				// credentials-required is only reachable from connecting.
				if err := ds.Transition(models.StateConnecting); err != nil {
					return nil, err
				}
				return s.failCredentials(ctx, ds, stored, &apperrors.CredentialsRequiredError{
					Kind:  string(ds.Kind),
					Cause: err,
				})
			}
			return nil, err
		}
		secretData = payload.Data
	}

	merged := make(map[string]any, len(stored)+len(secretData))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range secretData {
		if v != "" {
			merged[k] = v
		}
	}

	driver, err := drivers.Get(ds.Kind)
	if err != nil {
		return nil, err
	}
	cfg, err := driver.ParseConfig(merged)
	if err != nil {
		return nil, err
	}
	ds.Config = cfg

	// Reconnect attaches to the same target an Add or Test probe
	// would; hold the alias slot as well as the record slot.
	slot := aliasSlot(ds.Kind, cfg.Alias())
	if err := s.guard.Acquire(slot); err != nil {
		return nil, err
	}
	defer s.guard.Release(slot)

	if newSecret != nil {
		// Rotate: vault the new material and retire the old reference.
		oldRef, oldShared := ds.CredentialsRef, ds.SharedSecret
		ref, err := s.vault.Put(ctx, vault.SecretPayload{
			Label: fmt.Sprintf("%s credentials for %s", ds.Kind, cfg.Alias()),
			Data:  cfg.SecretData(),
		})
		if err != nil {
			return nil, err
		}
		ds.CredentialsRef = ref
		ds.SharedSecret = false
		if oldRef != "" && !oldShared {
			if err := s.vault.Delete(ctx, oldRef); err != nil {
				s.logger.Warn("Failed to delete rotated vault secret",
					zap.String("credentials_ref", oldRef),
					zap.String("error", logging.SanitizeError(err)))
			}
		}
	}

	if err := ds.Transition(models.StateConnecting); err != nil {
		return nil, err
	}
	s.registry.UpdateState(ctx, ds, stored)

	if err := s.runAttach(ctx, ds, cfg, stored, s.attachPolicy); err != nil {
		return ds.Clone(), err
	}
	return ds.Clone(), nil
}

func (s *connectionService) Disconnect(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	ds, stored, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Acquire(sourceSlot(id)); err != nil {
		return nil, err
	}
	defer s.guard.Release(sourceSlot(id))

	if ds.State != models.StateConnected {
		return nil, fmt.Errorf("source %s is not connected: %w", id, apperrors.ErrConflict)
	}

	alias := s.aliasOf(ds, stored)
	err = s.pool.WithConn(ctx, func(ctx context.Context, h *engine.Handle) error {
		if err := h.Exec(ctx, drivers.DetachStatement(alias)); err != nil {
			return err
		}
		if ds.EngineSecret != "" {
			if err := h.Exec(ctx, drivers.DropSecretStatement(ds.EngineSecret)); err != nil {
				s.logger.Warn("Failed to drop engine secret on disconnect",
					zap.String("alias", alias),
					zap.String("error", logging.SanitizeError(err)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detach %q: %w", alias, err)
	}

	s.refresher.Forget(alias)
	if err := ds.Transition(models.StateDisconnected); err != nil {
		return nil, err
	}
	ds.AttachedAt = nil
	ds.EngineSecret = ""
	s.registry.UpdateState(ctx, ds, stored)

	s.logger.Info("Disconnected source",
		zap.String("source_id", id.String()),
		zap.String("alias", alias))
	return ds, nil
}

func (s *connectionService) Remove(ctx context.Context, id uuid.UUID) error {
	ds, stored, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	if err := s.guard.Acquire(sourceSlot(id)); err != nil {
		return err
	}
	defer s.guard.Release(sourceSlot(id))

	alias := s.aliasOf(ds, stored)
	if ds.State == models.StateConnected || ds.State == models.StateConnecting {
		err := s.pool.WithConn(ctx, func(ctx context.Context, h *engine.Handle) error {
			s.cleanup.Rollback(ctx, h, attach.Target{
				Alias:      alias,
				SecretName: ds.EngineSecret,
			})
			return nil
		})
		if err != nil {
			s.logger.Warn("Failed to reach engine during source removal",
				zap.String("source_id", id.String()),
				zap.String("error", logging.SanitizeError(err)))
		}
	}

	if ds.CredentialsRef != "" && !ds.SharedSecret {
		if err := s.vault.Delete(ctx, ds.CredentialsRef); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to delete vault secret: %w", err)
		}
	}

	s.refresher.Forget(alias)
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Removed source",
		zap.String("source_id", id.String()),
		zap.String("alias", alias))
	return nil
}

func (s *connectionService) Get(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	ds, _, err := s.registry.Get(id)
	return ds, err
}

func (s *connectionService) List(ctx context.Context) ([]*models.DataSource, error) {
	return s.registry.Snapshot(), nil
}

// runAttach is the shared attach pipeline: vault the credentials,
// create the engine secret, attach under retry, confirm the catalog
// entry, refresh metadata. On failure every partial artifact is rolled
// back and the record lands in error or credentials-required.
func (s *connectionService) runAttach(ctx context.Context, ds *models.DataSource, cfg models.SourceConfig, stored map[string]any, policy retry.Policy) error {
	driver, err := drivers.Get(ds.Kind)
	if err != nil {
		return err
	}
	alias := cfg.Alias()

	createdRef := ""
	if cfg.NeedsSecret() && ds.CredentialsRef == "" {
		ref, err := s.vault.Put(ctx, vault.SecretPayload{
			Label: fmt.Sprintf("%s credentials for %s", ds.Kind, alias),
			Data:  cfg.SecretData(),
		})
		if err != nil {
			return s.failAttach(ctx, ds, stored, attach.Target{}, fmt.Errorf("failed to store credentials: %w", err))
		}
		ds.CredentialsRef = ref
		createdRef = ref
	}

	return s.pool.WithConn(ctx, func(ctx context.Context, h *engine.Handle) error {
		secretName, err := s.createEngineSecret(ctx, h, driver, cfg)
		if err != nil {
			return s.failAttach(ctx, ds, stored, attach.Target{
				SecretName:     secretName,
				CredentialsRef: createdRef,
			}, s.classifyAttachError(ds.Kind, alias, err))
		}
		target := attach.Target{
			Alias:          alias,
			SecretName:     secretName,
			CredentialsRef: createdRef,
			SharedSecret:   ds.SharedSecret,
		}

		reconciled := false
		attachErr := retry.Do(ctx, policy, func(ctx context.Context) error {
			stmt, err := driver.AttachStatement(cfg, secretName)
			if err != nil {
				return err
			}
			execErr := h.Exec(ctx, stmt)
			if execErr != nil && driver.IsDuplicateAttachError(execErr) {
				// The catalog already has this alias. Treat as success
				// and let verification confirm it is really there.
				reconciled = true
				s.logger.Warn("Source already attached, reconciling as success",
					zap.String("alias", alias),
					zap.String("error", logging.SanitizeError(execErr)))
				return nil
			}
			return execErr
		})
		if attachErr != nil {
			return s.failAttach(ctx, ds, stored, target, s.classifyAttachError(ds.Kind, alias, attachErr))
		}

		if err := s.poller.Confirm(ctx, h, alias, driver.VerificationBudget()); err != nil {
			return s.failAttach(ctx, ds, stored, target, err)
		}

		if err := ds.Transition(models.StateConnected); err != nil {
			return s.failAttach(ctx, ds, stored, target, err)
		}
		now := time.Now()
		ds.AttachedAt = &now
		ds.EngineSecret = secretName
		s.registry.UpdateState(ctx, ds, stored)

		s.refresher.Refresh(ctx, h, alias)

		s.logger.Info("Attached source",
			zap.String("source_id", ds.ID.String()),
			zap.String("kind", string(ds.Kind)),
			zap.String("alias", alias),
			zap.Bool("reconciled_duplicate", reconciled))
		return nil
	})
}

// createEngineSecret creates the engine-level secret for cfg and
// returns its generated name. Kinds without credential material get an
// empty name and no engine call.
func (s *connectionService) createEngineSecret(ctx context.Context, h *engine.Handle, driver drivers.Driver, cfg models.SourceConfig) (string, error) {
	name := drivers.NewSecretName(cfg.Alias())
	stmt, err := driver.SecretStatement(cfg, name)
	if err != nil {
		return "", err
	}
	if stmt.IsZero() {
		return "", nil
	}
	if err := h.Exec(ctx, stmt); err != nil {
		return name, err
	}
	return name, nil
}

// classifyAttachError maps engine failures onto the error taxonomy.
// Auth-shaped failures become CredentialsRequiredError so the state
// machine can route to credentials-required.
func (s *connectionService) classifyAttachError(kind models.SourceKind, alias string, err error) error {
	if err == nil {
		return nil
	}
	if engine.IsAuth(err) {
		return &apperrors.CredentialsRequiredError{Kind: string(kind), Cause: err}
	}
	return fmt.Errorf("failed to attach %q: %w", alias, err)
}

// failAttach rolls back partial artifacts and moves the record to its
// failure state. The original error is always returned.
func (s *connectionService) failAttach(ctx context.Context, ds *models.DataSource, stored map[string]any, target attach.Target, cause error) error {
	if target.Alias != "" || target.SecretName != "" || target.CredentialsRef != "" {
		err := s.pool.WithConn(ctx, func(ctx context.Context, h *engine.Handle) error {
			s.cleanup.Rollback(ctx, h, target)
			return nil
		})
		if err != nil {
			s.logger.Warn("Failed to reach engine during rollback",
				zap.String("source_id", ds.ID.String()),
				zap.String("error", logging.SanitizeError(err)))
		}
	}
	if target.CredentialsRef != "" && !target.SharedSecret {
		ds.CredentialsRef = ""
	}
	ds.EngineSecret = ""

	if apperrors.IsCredentialsRequired(cause) {
		if _, err := s.failCredentials(ctx, ds, stored, cause); err != nil {
			return err
		}
		return cause
	}

	if err := ds.Transition(models.StateError); err != nil {
		s.logger.Error("Illegal state transition on attach failure",
			zap.String("source_id", ds.ID.String()),
			zap.Error(err))
	}
	ds.ConnectionError = logging.SanitizeError(cause)
	s.registry.UpdateState(ctx, ds, stored)

	s.logger.Warn("Attach failed",
		zap.String("source_id", ds.ID.String()),
		zap.String("kind", string(ds.Kind)),
		zap.String("error", logging.SanitizeError(cause)))
	return cause
}

// failCredentials parks the record in credentials-required. The
// ConnectionError field stays empty: the state itself is the message,
// and the cause may embed credential fragments.
func (s *connectionService) failCredentials(ctx context.Context, ds *models.DataSource, stored map[string]any, cause error) (*models.DataSource, error) {
	if ds.State != models.StateCredentialsRequired {
		if err := ds.Transition(models.StateCredentialsRequired); err != nil {
			return nil, err
		}
	}
	s.registry.UpdateState(ctx, ds, stored)

	s.logger.Warn("Source requires credentials",
		zap.String("source_id", ds.ID.String()),
		zap.String("kind", string(ds.Kind)))
	return ds.Clone(), cause
}

// sourceSlot names the guard slot for operations addressing an
// existing record by id.
func sourceSlot(id uuid.UUID) string {
	return "source:" + id.String()
}

// aliasSlot names the guard slot for the attach target itself, shared
// by Add and TestConnection so a probe and an attach for the same
// (kind, alias) pair never overlap.
func aliasSlot(kind models.SourceKind, alias string) string {
	return "alias:" + string(kind) + ":" + alias
}

func (s *connectionService) aliasOf(ds *models.DataSource, stored map[string]any) string {
	if ds.Config != nil {
		return ds.Config.Alias()
	}
	if name, ok := stored["name"].(string); ok {
		return name
	}
	return ""
}

// storedConfig strips credential material out of the raw config before
// it reaches the control-plane database. Whatever the driver vaults is
// removed; the remainder is safe to persist and log.
func storedConfig(raw map[string]any, cfg models.SourceConfig) map[string]any {
	stored := make(map[string]any, len(raw))
	for k, v := range raw {
		stored[k] = v
	}
	stored["name"] = cfg.Alias()
	for k := range cfg.SecretData() {
		delete(stored, k)
	}
	return stored
}
