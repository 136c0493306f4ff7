package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/database"
)

// SecretRow is one stored secret. Payload is ciphertext; the
// repository never handles plaintext credential material.
type SecretRow struct {
	ID        uuid.UUID
	Label     string
	Payload   string
	Shared    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SecretRepository defines data access for vault secret rows.
type SecretRepository interface {
	// Insert stores a new secret row.
	Insert(ctx context.Context, row *SecretRow) error

	// Get retrieves a secret row by ID. Returns apperrors.ErrNotFound
	// when missing.
	Get(ctx context.Context, id uuid.UUID) (*SecretRow, error)

	// Delete removes a secret row. Returns apperrors.ErrNotFound when
	// the row does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type secretRepository struct {
	db *database.DB
}

// NewSecretRepository creates a PostgreSQL-backed secret repository.
func NewSecretRepository(db *database.DB) SecretRepository {
	return &secretRepository{db: db}
}

func (r *secretRepository) Insert(ctx context.Context, row *SecretRow) error {
	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO skiff_source_secrets (id, label, payload, shared, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		row.ID, row.Label, row.Payload, row.Shared, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert secret: %w", err)
	}
	return nil
}

func (r *secretRepository) Get(ctx context.Context, id uuid.UUID) (*SecretRow, error) {
	var row SecretRow
	err := r.db.QueryRow(ctx, `
		SELECT id, label, payload, shared, created_at, updated_at
		FROM skiff_source_secrets WHERE id = $1`, id,
	).Scan(&row.ID, &row.Label, &row.Payload, &row.Shared, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	return &row, nil
}

func (r *secretRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM skiff_source_secrets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
