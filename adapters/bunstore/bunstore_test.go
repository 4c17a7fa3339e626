package bunstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "portal.db")

	store, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "token", "tok-123"))

	value, found, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok-123", value)
}

func TestStoreGetAbsent(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "user", "one"))
	require.NoError(t, store.Set(ctx, "user", "two"))

	value, found, err := store.Get(ctx, "user")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "two", value)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "token", "tok"))
	require.NoError(t, store.Delete(ctx, "token"))

	_, found, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, store.Delete(ctx, "token"))
}

func TestStoreKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "token", "tok"))
	require.NoError(t, store.Set(ctx, "user", `{"id":7}`))
	require.NoError(t, store.Delete(ctx, "user"))

	value, found, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok", value)
}

func TestStoreRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}
