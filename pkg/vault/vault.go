// Package vault stores credential material at rest. Secrets are
// encrypted before they reach storage and referenced everywhere else
// by opaque ref strings, so source records and logs never carry
// plaintext credentials.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/crypto"
	"github.com/skiff-data/skiff-engine/pkg/repositories"
)

// SecretPayload is one vaulted credential set.
type SecretPayload struct {
	// Label is a human-readable hint ("postgres password for sales").
	// Never credential material.
	Label string

	// Shared marks a secret that outlives any single source record.
	// Deleting a source with a shared CredentialsRef leaves the secret
	// in place.
	Shared bool

	// Data is the plaintext credential material, keyed by field name.
	Data map[string]string
}

// Vault stores and retrieves credential payloads by opaque reference.
type Vault interface {
	// Put encrypts and stores a payload, returning its reference.
	Put(ctx context.Context, payload SecretPayload) (string, error)

	// Get retrieves and decrypts a payload by reference. Returns
	// apperrors.ErrNotFound for unknown refs and
	// apperrors.ErrVaultKeyMismatch when the stored ciphertext does
	// not open under the configured key.
	Get(ctx context.Context, ref string) (SecretPayload, error)

	// Delete removes a payload. Deleting an unknown ref returns
	// apperrors.ErrNotFound.
	Delete(ctx context.Context, ref string) error
}

// PostgresVault persists encrypted payloads in the control-plane
// database.
type PostgresVault struct {
	secrets repositories.SecretRepository
	box     *crypto.SecretBox
}

// NewPostgresVault creates a vault over the secret repository.
func NewPostgresVault(secrets repositories.SecretRepository, box *crypto.SecretBox) *PostgresVault {
	return &PostgresVault{secrets: secrets, box: box}
}

func (v *PostgresVault) Put(ctx context.Context, payload SecretPayload) (string, error) {
	ciphertext, err := v.box.EncryptPayload(payload.Data)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt secret payload: %w", err)
	}

	row := &repositories.SecretRow{
		Label:   payload.Label,
		Payload: ciphertext,
		Shared:  payload.Shared,
	}
	if err := v.secrets.Insert(ctx, row); err != nil {
		return "", err
	}
	return row.ID.String(), nil
}

func (v *PostgresVault) Get(ctx context.Context, ref string) (SecretPayload, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return SecretPayload{}, fmt.Errorf("invalid secret reference %q: %w", ref, apperrors.ErrNotFound)
	}

	row, err := v.secrets.Get(ctx, id)
	if err != nil {
		return SecretPayload{}, err
	}

	data, err := v.box.DecryptPayload(row.Payload)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return SecretPayload{}, apperrors.ErrVaultKeyMismatch
		}
		return SecretPayload{}, fmt.Errorf("failed to decrypt secret payload: %w", err)
	}

	return SecretPayload{Label: row.Label, Shared: row.Shared, Data: data}, nil
}

func (v *PostgresVault) Delete(ctx context.Context, ref string) error {
	id, err := uuid.Parse(ref)
	if err != nil {
		return fmt.Errorf("invalid secret reference %q: %w", ref, apperrors.ErrNotFound)
	}
	return v.secrets.Delete(ctx, id)
}
