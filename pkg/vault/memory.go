package vault

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
)

// MemoryVault is an in-process Vault for tests and throwaway setups.
// Payloads are held in plain memory, never written to disk.
type MemoryVault struct {
	mu      sync.RWMutex
	secrets map[string]SecretPayload
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{secrets: make(map[string]SecretPayload)}
}

func (v *MemoryVault) Put(ctx context.Context, payload SecretPayload) (string, error) {
	data := make(map[string]string, len(payload.Data))
	for k, val := range payload.Data {
		data[k] = val
	}
	payload.Data = data

	ref := uuid.NewString()
	v.mu.Lock()
	v.secrets[ref] = payload
	v.mu.Unlock()
	return ref, nil
}

func (v *MemoryVault) Get(ctx context.Context, ref string) (SecretPayload, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	payload, ok := v.secrets[ref]
	if !ok {
		return SecretPayload{}, apperrors.ErrNotFound
	}
	return payload, nil
}

func (v *MemoryVault) Delete(ctx context.Context, ref string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.secrets[ref]; !ok {
		return apperrors.ErrNotFound
	}
	delete(v.secrets, ref)
	return nil
}

// Len reports the number of stored payloads. Test helper for the
// no-orphaned-secrets checks.
func (v *MemoryVault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.secrets)
}
