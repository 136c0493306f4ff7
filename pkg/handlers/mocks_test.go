package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/skiff-data/skiff-engine/pkg/models"
)

// stubConnectionService is a hand-rolled ConnectionService stub whose
// behavior each test overrides per method.
type stubConnectionService struct {
	addFn        func(ctx context.Context, kind models.SourceKind, displayName string, config map[string]any) (*models.DataSource, error)
	testFn       func(ctx context.Context, kind models.SourceKind, config map[string]any) error
	reconnectFn  func(ctx context.Context, id uuid.UUID, newSecret map[string]string) (*models.DataSource, error)
	disconnectFn func(ctx context.Context, id uuid.UUID) (*models.DataSource, error)
	removeFn     func(ctx context.Context, id uuid.UUID) error
	getFn        func(ctx context.Context, id uuid.UUID) (*models.DataSource, error)
	listFn       func(ctx context.Context) ([]*models.DataSource, error)
}

func (s *stubConnectionService) Add(ctx context.Context, kind models.SourceKind, displayName string, config map[string]any) (*models.DataSource, error) {
	return s.addFn(ctx, kind, displayName, config)
}

func (s *stubConnectionService) TestConnection(ctx context.Context, kind models.SourceKind, config map[string]any) error {
	return s.testFn(ctx, kind, config)
}

func (s *stubConnectionService) Reconnect(ctx context.Context, id uuid.UUID, newSecret map[string]string) (*models.DataSource, error) {
	return s.reconnectFn(ctx, id, newSecret)
}

func (s *stubConnectionService) Disconnect(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	return s.disconnectFn(ctx, id)
}

func (s *stubConnectionService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.removeFn(ctx, id)
}

func (s *stubConnectionService) Get(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	return s.getFn(ctx, id)
}

func (s *stubConnectionService) List(ctx context.Context) ([]*models.DataSource, error) {
	return s.listFn(ctx)
}
