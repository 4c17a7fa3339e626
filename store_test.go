package vitalband_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keneth-urbizagastegui/vitalband"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := newRecordingStorage()
	store := vitalband.NewSessionStore(storage)

	sess := &vitalband.Session{Token: "tok-123", User: testUser()}
	require.NoError(t, store.Write(ctx, sess))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-123", got.Token)
	assert.Equal(t, int64(7), got.User.ID)
	assert.Equal(t, "pat@example.com", got.User.Email)
	assert.Equal(t, vitalband.RoleClient, got.User.Role)
}

func TestSessionStoreReadAbsent(t *testing.T) {
	store := vitalband.NewSessionStore(newRecordingStorage())

	got, err := store.Read(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreWriteOrdering(t *testing.T) {
	ctx := context.Background()
	storage := newRecordingStorage()
	store := vitalband.NewSessionStore(storage)

	require.NoError(t, store.Write(ctx, &vitalband.Session{Token: "tok", User: testUser()}))
	assert.Equal(t, []string{
		"set " + vitalband.StorageKeyToken,
		"set " + vitalband.StorageKeyUser,
	}, storage.operations())
}

func TestSessionStoreClearOrdering(t *testing.T) {
	ctx := context.Background()
	storage := newRecordingStorage()
	store := vitalband.NewSessionStore(storage)

	require.NoError(t, store.Write(ctx, &vitalband.Session{Token: "tok", User: testUser()}))
	storage.ops = nil

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, []string{
		"delete " + vitalband.StorageKeyUser,
		"delete " + vitalband.StorageKeyToken,
	}, storage.operations())
}

func TestSessionStoreClearIdempotent(t *testing.T) {
	ctx := context.Background()
	store := vitalband.NewSessionStore(newRecordingStorage())

	assert.NoError(t, store.Clear(ctx))
	assert.NoError(t, store.Clear(ctx))
}

func TestSessionStoreRejectsPartialWrite(t *testing.T) {
	ctx := context.Background()
	storage := newRecordingStorage()
	store := vitalband.NewSessionStore(storage)

	err := store.Write(ctx, &vitalband.Session{Token: "tok"})
	require.Error(t, err)
	assert.ErrorIs(t, err, vitalband.ErrPartialSession)
	assert.Empty(t, storage.operations(), "nothing should reach the substrate")

	err = store.Write(ctx, &vitalband.Session{User: testUser()})
	assert.ErrorIs(t, err, vitalband.ErrPartialSession)
}

func TestSessionStorePurgesPartialState(t *testing.T) {
	ctx := context.Background()
	storage := newRecordingStorage()
	store := vitalband.NewSessionStore(storage)

	// A user record without its token is corruption, not a session.
	storage.put(vitalband.StorageKeyUser, `{"id":7,"email":"pat@example.com","role":"client"}`)

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, storage.has(vitalband.StorageKeyUser))
	assert.False(t, storage.has(vitalband.StorageKeyToken))
}

func TestSessionStorePurgesUnparsableUser(t *testing.T) {
	ctx := context.Background()
	storage := newRecordingStorage()
	store := vitalband.NewSessionStore(storage)

	storage.put(vitalband.StorageKeyToken, "tok")
	storage.put(vitalband.StorageKeyUser, "{not json")

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, storage.has(vitalband.StorageKeyToken))
}

func TestSessionStorePurgesIncompleteUser(t *testing.T) {
	ctx := context.Background()
	storage := newRecordingStorage()
	store := vitalband.NewSessionStore(storage)

	storage.put(vitalband.StorageKeyToken, "tok")
	storage.put(vitalband.StorageKeyUser, `{"id":7}`)

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, storage.has(vitalband.StorageKeyToken))
}

func TestSessionStoreWriteRollsBackToken(t *testing.T) {
	ctx := context.Background()
	storage := newFailingStorage()
	storage.failSet[vitalband.StorageKeyUser] = true
	store := vitalband.NewSessionStore(storage)

	err := store.Write(ctx, &vitalband.Session{Token: "tok", User: testUser()})
	require.Error(t, err)
	assert.False(t, storage.inner.has(vitalband.StorageKeyToken),
		"a token without a user must not stay behind")
}

func TestSessionStoreSurfacesSubstrateReadFailure(t *testing.T) {
	ctx := context.Background()
	storage := newFailingStorage()
	storage.failGet[vitalband.StorageKeyToken] = true
	store := vitalband.NewSessionStore(storage)

	_, err := store.Read(ctx)
	assert.Error(t, err)
}
