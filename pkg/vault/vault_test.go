package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
)

func TestMemoryVault_RoundTrip(t *testing.T) {
	v := NewMemoryVault()
	ctx := context.Background()

	ref, err := v.Put(ctx, SecretPayload{
		Label: "postgres password for sales",
		Data:  map[string]string{"password": "hunter2"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	got, err := v.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got.Data["password"])
	assert.Equal(t, "postgres password for sales", got.Label)

	require.NoError(t, v.Delete(ctx, ref))
	_, err = v.Get(ctx, ref)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMemoryVault_DeleteUnknownRef(t *testing.T) {
	v := NewMemoryVault()
	err := v.Delete(context.Background(), "no-such-ref")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMemoryVault_PutCopiesData(t *testing.T) {
	v := NewMemoryVault()
	ctx := context.Background()

	data := map[string]string{"token": "tok1"}
	ref, err := v.Put(ctx, SecretPayload{Data: data})
	require.NoError(t, err)

	data["token"] = "mutated"

	got, err := v.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "tok1", got.Data["token"])
}
