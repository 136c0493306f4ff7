// Package repositories implements control-plane persistence for source
// records and vault secret rows on PostgreSQL.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/database"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// DataSourceRepository defines data access for source records. The
// typed per-kind config is stored as JSONB with credential fields
// stripped; credential material lives in the vault, joined through
// CredentialsRef.
type DataSourceRepository interface {
	// Create inserts a new source record with its non-secret config.
	// Returns apperrors.ErrConflict when the alias is already taken.
	Create(ctx context.Context, ds *models.DataSource, config map[string]any) error

	// GetByID retrieves a record and its stored config map.
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, map[string]any, error)

	// GetByAlias retrieves a record by its engine alias.
	GetByAlias(ctx context.Context, alias string) (*models.DataSource, map[string]any, error)

	// List retrieves every record with its stored config map.
	List(ctx context.Context) ([]*models.DataSource, []map[string]any, error)

	// Update persists the mutable fields of an existing record.
	Update(ctx context.Context, ds *models.DataSource, config map[string]any) error

	// Delete removes a record. Returns apperrors.ErrNotFound when the
	// record does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type dataSourceRepository struct {
	db *database.DB
}

// NewDataSourceRepository creates a PostgreSQL-backed source repository.
func NewDataSourceRepository(db *database.DB) DataSourceRepository {
	return &dataSourceRepository{db: db}
}

func (r *dataSourceRepository) Create(ctx context.Context, ds *models.DataSource, config map[string]any) error {
	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode source config: %w", err)
	}

	query := `
		INSERT INTO skiff_data_sources
			(id, kind, alias, display_name, connection_state, connection_error,
			 attached_at, credentials_ref, shared_secret, engine_secret, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Exec(ctx, query,
		ds.ID,
		ds.Kind,
		ds.Config.Alias(),
		ds.DisplayName,
		ds.State,
		ds.ConnectionError,
		ds.AttachedAt,
		ds.CredentialsRef,
		ds.SharedSecret,
		ds.EngineSecret,
		configJSON,
		ds.CreatedAt,
		ds.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create source record: %w", err)
	}
	return nil
}

const selectColumns = `
	id, kind, display_name, connection_state, connection_error,
	attached_at, credentials_ref, shared_secret, engine_secret, config, created_at, updated_at`

func (r *dataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, map[string]any, error) {
	query := `SELECT` + selectColumns + ` FROM skiff_data_sources WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *dataSourceRepository) GetByAlias(ctx context.Context, alias string) (*models.DataSource, map[string]any, error) {
	query := `SELECT` + selectColumns + ` FROM skiff_data_sources WHERE alias = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, alias))
}

func (r *dataSourceRepository) List(ctx context.Context) ([]*models.DataSource, []map[string]any, error) {
	query := `SELECT` + selectColumns + ` FROM skiff_data_sources ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list source records: %w", err)
	}
	defer rows.Close()

	var (
		sources []*models.DataSource
		configs []map[string]any
	)
	for rows.Next() {
		ds, config, err := scanRow(rows)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, ds)
		configs = append(configs, config)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate source records: %w", err)
	}
	return sources, configs, nil
}

func (r *dataSourceRepository) Update(ctx context.Context, ds *models.DataSource, config map[string]any) error {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode source config: %w", err)
	}

	query := `
		UPDATE skiff_data_sources
		SET display_name = $2, connection_state = $3, connection_error = $4,
		    attached_at = $5, credentials_ref = $6, shared_secret = $7,
		    engine_secret = $8, config = $9, updated_at = $10
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		ds.ID,
		ds.DisplayName,
		ds.State,
		ds.ConnectionError,
		ds.AttachedAt,
		ds.CredentialsRef,
		ds.SharedSecret,
		ds.EngineSecret,
		configJSON,
		ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update source record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *dataSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM skiff_data_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *dataSourceRepository) scanOne(row pgx.Row) (*models.DataSource, map[string]any, error) {
	ds, config, err := scanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apperrors.ErrNotFound
	}
	return ds, config, err
}

func scanRow(row rowScanner) (*models.DataSource, map[string]any, error) {
	var (
		ds         models.DataSource
		configJSON []byte
	)
	err := row.Scan(
		&ds.ID,
		&ds.Kind,
		&ds.DisplayName,
		&ds.State,
		&ds.ConnectionError,
		&ds.AttachedAt,
		&ds.CredentialsRef,
		&ds.SharedSecret,
		&ds.EngineSecret,
		&configJSON,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to scan source record: %w", err)
	}

	config := make(map[string]any)
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &config); err != nil {
			return nil, nil, fmt.Errorf("failed to decode source config: %w", err)
		}
	}
	return &ds, config, nil
}
