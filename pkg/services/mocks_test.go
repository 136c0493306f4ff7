package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// memRepo is an in-memory DataSourceRepository for pipeline tests.
type memRepo struct {
	mu      sync.Mutex
	sources map[uuid.UUID]*models.DataSource
	configs map[uuid.UUID]map[string]any
}

func newMemRepo() *memRepo {
	return &memRepo{
		sources: make(map[uuid.UUID]*models.DataSource),
		configs: make(map[uuid.UUID]map[string]any),
	}
}

func (m *memRepo) Create(ctx context.Context, ds *models.DataSource, config map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.configs {
		if existing["name"] == config["name"] {
			return apperrors.ErrConflict
		}
	}
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	m.sources[ds.ID] = ds.Clone()
	m.configs[ds.ID] = config
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.sources[id]
	if !ok {
		return nil, nil, apperrors.ErrNotFound
	}
	return ds.Clone(), m.configs[id], nil
}

func (m *memRepo) GetByAlias(ctx context.Context, alias string) (*models.DataSource, map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, config := range m.configs {
		if config["name"] == alias {
			return m.sources[id].Clone(), config, nil
		}
	}
	return nil, nil, apperrors.ErrNotFound
}

func (m *memRepo) List(ctx context.Context) ([]*models.DataSource, []map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sources []*models.DataSource
	var configs []map[string]any
	for id, ds := range m.sources {
		sources = append(sources, ds.Clone())
		configs = append(configs, m.configs[id])
	}
	return sources, configs, nil
}

func (m *memRepo) Update(ctx context.Context, ds *models.DataSource, config map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[ds.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.sources[ds.ID] = ds.Clone()
	m.configs[ds.ID] = config
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.sources, id)
	delete(m.configs, id)
	return nil
}
