package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/testutil"
)

func TestCredentialStore(t *testing.T) {
	ns := testutil.SetupTestRedis(t)
	client := ns.Client

	ctx := context.Background()
	store := NewCredentialStore(client, ns.Prefix, testutil.TokenExpiry)

	t.Run("missing credential is empty", func(t *testing.T) {
		token, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("set and get with ttl", func(t *testing.T) {
		token := testutil.SignedToken(t, "u1", time.Now().Add(time.Hour))
		require.NoError(t, store.Set(ctx, token))

		got, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, token, got)

		ttl, err := client.TTL(ctx, ns.Prefix+"credential").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)
	})

	t.Run("expired credential is refused", func(t *testing.T) {
		err := store.Set(ctx, testutil.SignedToken(t, "u1", time.Now().Add(-time.Minute)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("empty credential is refused", func(t *testing.T) {
		assert.Error(t, store.Set(ctx, ""))
	})

	t.Run("opaque credential has no ttl", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "opaque-token"))
		ttl, err := client.TTL(ctx, ns.Prefix+"credential").Result()
		require.NoError(t, err)
		assert.Equal(t, time.Duration(-1), ttl)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx))
		token, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, token)
		// Removing twice is fine.
		require.NoError(t, store.Remove(ctx))
	})
}

func TestIdentityStore(t *testing.T) {
	ns := testutil.SetupTestRedis(t)
	client := ns.Client

	ctx := context.Background()
	store := NewIdentityStore(client, ns.Prefix)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	id := domainauth.Identity{
		UserID:            "u1",
		Email:             "u1@example.com",
		Tier:              domainauth.Tier2,
		IdentityVerified:  true,
		TransactionPINSet: true,
	}
	require.NoError(t, store.Save(ctx, id))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)

	assert.Error(t, store.Save(ctx, domainauth.Identity{}))

	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdentityStore_CorruptData(t *testing.T) {
	ns := testutil.SetupTestRedis(t)
	client := ns.Client

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, ns.Prefix+"identity", "{not json", 0).Err())

	_, err := NewIdentityStore(client, ns.Prefix).Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal identity")
}
