// Package registry keeps the authoritative in-memory view of every
// source record and mirrors it to the control-plane database. Readers
// get immutable snapshots; the live map is replaced wholesale on every
// mutation, so a reader never observes a half-applied update.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/models"
	"github.com/skiff-data/skiff-engine/pkg/repositories"
)

type entry struct {
	source *models.DataSource
	// rawConfig is the stored non-secret config map, kept for
	// reattachment after restart. Credential fields are merged back in
	// from the vault at attach time.
	rawConfig map[string]any
}

// Registry is the in-memory source registry backed by the repository.
type Registry struct {
	repo   repositories.DataSourceRepository
	logger *zap.Logger

	// mu guards the sources field itself. The map value is replaced,
	// never mutated in place, so readers only need the field read.
	mu      sync.RWMutex
	sources map[uuid.UUID]entry
}

// New creates an empty registry. Call Load to warm-start from storage.
func New(repo repositories.DataSourceRepository, logger *zap.Logger) *Registry {
	return &Registry{
		repo:    repo,
		logger:  logger,
		sources: make(map[uuid.UUID]entry),
	}
}

// Load warm-starts the registry from storage. Records left in
// connecting or connected by a previous process are normalized to
// disconnected: the engine catalog is empty after restart, so those
// states describe attachments that no longer exist.
func (r *Registry) Load(ctx context.Context) error {
	sources, configs, err := r.repo.List(ctx)
	if err != nil {
		return err
	}

	next := make(map[uuid.UUID]entry, len(sources))
	for i, ds := range sources {
		if ds.State == models.StateConnecting || ds.State == models.StateConnected {
			prev := ds.State
			ds.State = models.StateDisconnected
			ds.AttachedAt = nil
			if err := r.repo.Update(ctx, ds, configs[i]); err != nil {
				r.logger.Warn("Failed to persist normalized source state",
					zap.String("source_id", ds.ID.String()),
					zap.Error(err))
			}
			r.logger.Info("Normalized stale source state on startup",
				zap.String("source_id", ds.ID.String()),
				zap.String("previous_state", string(prev)))
		}
		next[ds.ID] = entry{source: ds, rawConfig: configs[i]}
	}

	r.mu.Lock()
	r.sources = next
	r.mu.Unlock()
	r.logger.Info("Loaded source registry", zap.Int("sources", len(next)))
	return nil
}

// Snapshot returns a clone of every source, ordered by creation time.
func (r *Registry) Snapshot() []*models.DataSource {
	r.mu.RLock()
	current := r.sources
	r.mu.RUnlock()

	out := make([]*models.DataSource, 0, len(current))
	for _, e := range current {
		out = append(out, e.source.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Get returns a clone of one source and its stored config map.
func (r *Registry) Get(id uuid.UUID) (*models.DataSource, map[string]any, error) {
	r.mu.RLock()
	e, ok := r.sources[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, apperrors.ErrNotFound
	}
	return e.source.Clone(), e.rawConfig, nil
}

// GetByAlias returns a clone of the source attached under alias.
func (r *Registry) GetByAlias(alias string) (*models.DataSource, map[string]any, error) {
	r.mu.RLock()
	current := r.sources
	r.mu.RUnlock()

	for _, e := range current {
		if e.source.Config != nil && e.source.Config.Alias() == alias {
			return e.source.Clone(), e.rawConfig, nil
		}
		if name, ok := e.rawConfig["name"].(string); ok && name == alias {
			return e.source.Clone(), e.rawConfig, nil
		}
	}
	return nil, nil, apperrors.ErrNotFound
}

// Create persists a new source and publishes it to the live view.
func (r *Registry) Create(ctx context.Context, ds *models.DataSource, rawConfig map[string]any) error {
	if err := r.repo.Create(ctx, ds, rawConfig); err != nil {
		return err
	}
	r.publish(ds, rawConfig)
	return nil
}

// Update persists a modified source and publishes it. The caller is
// responsible for having applied a legal state transition.
func (r *Registry) Update(ctx context.Context, ds *models.DataSource, rawConfig map[string]any) error {
	if err := r.repo.Update(ctx, ds, rawConfig); err != nil {
		return err
	}
	r.publish(ds, rawConfig)
	return nil
}

// UpdateState publishes a state change immediately and persists it
// best-effort. The in-memory view is the source of truth mid-pipeline;
// a storage hiccup must not fail an attach that already succeeded.
func (r *Registry) UpdateState(ctx context.Context, ds *models.DataSource, rawConfig map[string]any) {
	r.publish(ds, rawConfig)
	if err := r.repo.Update(ctx, ds, rawConfig); err != nil {
		r.logger.Warn("Failed to persist source state",
			zap.String("source_id", ds.ID.String()),
			zap.String("state", string(ds.State)),
			zap.Error(err))
	}
}

// Delete removes a source from storage and the live view.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	next := make(map[uuid.UUID]entry, len(r.sources))
	for k, v := range r.sources {
		if k != id {
			next[k] = v
		}
	}
	r.sources = next
	r.mu.Unlock()
	return nil
}

func (r *Registry) publish(ds *models.DataSource, rawConfig map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[uuid.UUID]entry, len(r.sources)+1)
	for k, v := range r.sources {
		next[k] = v
	}
	next[ds.ID] = entry{source: ds.Clone(), rawConfig: rawConfig}
	r.sources = next
}
