package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vaultline/session-engine/internal/mocks"
)

func newStrictSessionStore(t *testing.T) (*SessionStore, *mocks.MockCredentialStore) {
	t.Helper()
	creds := mocks.NewMockCredentialStore(gomock.NewController(t))
	store := NewSessionStore(SessionStoreOptions{
		Stores: SessionPersistence{Credentials: creds},
		Clock:  NewTokenClock(fixedNow(clockBase)),
	})
	return store, creds
}

func TestSessionStore_StorageCalls(t *testing.T) {
	ctx := context.Background()

	t.Run("expired credential is removed once at startup", func(t *testing.T) {
		store, creds := newStrictSessionStore(t)
		id := testIdentity("u1")
		creds.EXPECT().Get(gomock.Any()).Return(tokenExpiringAt(t, clockBase.Add(-time.Minute)), nil)
		creds.EXPECT().Remove(gomock.Any()).Return(nil).Times(1)

		s := store.InitializeAuth(ctx, &id)

		assert.True(t, s.Initialized)
		assert.False(t, s.LoggedIn)
	})

	t.Run("empty slot while logged out writes nothing", func(t *testing.T) {
		store, creds := newStrictSessionStore(t)
		creds.EXPECT().Get(gomock.Any()).Return("", nil).Times(2)

		store.InitializeAuth(ctx, nil)
		assert.False(t, store.CheckToken(ctx))
	})

	t.Run("login writes the credential exactly once", func(t *testing.T) {
		store, creds := newStrictSessionStore(t)
		token := tokenExpiringAt(t, clockBase.Add(time.Hour))
		creds.EXPECT().Set(gomock.Any(), token).Return(nil).Times(1)
		creds.EXPECT().Get(gomock.Any()).Return(token, nil)

		_, err := store.CompleteLogin(ctx, token, testIdentity("u1"))
		require.NoError(t, err)
		assert.True(t, store.CheckToken(ctx))
	})

	t.Run("read failure keeps a valid session and its credential", func(t *testing.T) {
		store, creds := newStrictSessionStore(t)
		token := tokenExpiringAt(t, clockBase.Add(time.Hour))
		creds.EXPECT().Set(gomock.Any(), token).Return(nil)
		creds.EXPECT().Get(gomock.Any()).Return("", errors.New("redis: i/o timeout"))

		_, err := store.CompleteLogin(ctx, token, testIdentity("u1"))
		require.NoError(t, err)

		assert.True(t, store.CheckToken(ctx))
		s := store.Snapshot()
		assert.True(t, s.LoggedIn)
		require.NotNil(t, s.Identity)
		assert.Equal(t, "u1", s.Identity.UserID)
	})

	t.Run("read failure while logged out writes nothing", func(t *testing.T) {
		store, creds := newStrictSessionStore(t)
		creds.EXPECT().Get(gomock.Any()).Return("", nil)
		creds.EXPECT().Get(gomock.Any()).Return("", context.DeadlineExceeded)

		store.InitializeAuth(ctx, nil)
		assert.False(t, store.CheckToken(ctx))
		assert.True(t, store.Snapshot().Initialized)
	})

	t.Run("failed write leaves session logged out", func(t *testing.T) {
		store, creds := newStrictSessionStore(t)
		creds.EXPECT().Set(gomock.Any(), gomock.Any()).Return(errors.New("read-only"))

		_, err := store.CompleteLogin(ctx, tokenExpiringAt(t, clockBase.Add(time.Hour)), testIdentity("u1"))

		require.Error(t, err)
		assert.False(t, store.Snapshot().LoggedIn)
	})
}
