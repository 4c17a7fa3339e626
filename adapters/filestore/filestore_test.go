package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "token", "tok-123"))

	value, found, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok-123", value)
}

func TestStoreGetAbsent(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, found, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "user", "one"))
	require.NoError(t, store.Set(ctx, "user", "two"))

	value, found, err := store.Get(ctx, "user")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "two", value)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "token", "tok"))
	require.NoError(t, store.Delete(ctx, "token"))

	_, found, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting an absent key is a no-op.
	assert.NoError(t, store.Delete(ctx, "token"))
}

func TestStoreSealedRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := New(dir, WithSealingKey("hunter2"))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "token", "secret-value"))

	// The value on disk must not contain the plaintext.
	raw, err := os.ReadFile(filepath.Join(dir, "token"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-value")

	value, found, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "secret-value", value)
}

func TestStoreSealedWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := New(dir, WithSealingKey("hunter2"))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "token", "secret-value"))

	other, err := New(dir, WithSealingKey("wrong"))
	require.NoError(t, err)

	_, _, err = other.Get(ctx, "token")
	assert.Error(t, err)
}

func TestStoreKeySanitization(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "../escape", "value"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")

	value, found, err := store.Get(ctx, "../escape")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", value)
}

func TestStoreRequiresDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestStoreContextCancelled(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.Set(ctx, "k", "v"))
	_, _, err = store.Get(ctx, "k")
	assert.Error(t, err)
}
