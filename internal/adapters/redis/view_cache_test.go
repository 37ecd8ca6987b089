package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/session-engine/internal/domain/views"
	"github.com/vaultline/session-engine/internal/ports"
	"github.com/vaultline/session-engine/internal/testutil"
)

var _ ports.ViewCache = (*ViewCache)(nil)

func TestViewCache(t *testing.T) {
	ns := testutil.SetupTestRedis(t)
	client := ns.Client

	ctx := context.Background()
	cache := NewViewCache(client, ns.Prefix, time.Minute)
	key := views.Key(views.Transactions, "u1")

	_, ok, err := cache.Get(ctx, key, "page=1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, "page=1", []byte(`[1]`)))
	require.NoError(t, cache.Set(ctx, key, "page=2", []byte(`[2]`)))

	got, ok, err := cache.Get(ctx, key, "page=2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[2]`, string(got))

	ttl, err := client.TTL(ctx, ns.Prefix+"view:"+string(key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, key))
	for _, variant := range []string{"page=1", "page=2"} {
		_, ok, err = cache.Get(ctx, key, variant)
		require.NoError(t, err)
		assert.False(t, ok, variant)
	}

	_, _, err = cache.Get(ctx, "", "")
	assert.Error(t, err)
}

func TestViewCache_KeysAreIsolated(t *testing.T) {
	ns := testutil.SetupTestRedis(t)
	client := ns.Client

	ctx := context.Background()
	cache := NewViewCache(client, ns.Prefix, 0)
	wallet := views.Key(views.Wallet, "u1")
	other := views.Key(views.Wallet, "u2")

	require.NoError(t, cache.Set(ctx, wallet, "", []byte(`{"balance":1}`)))
	require.NoError(t, cache.Set(ctx, other, "", []byte(`{"balance":2}`)))
	require.NoError(t, cache.Invalidate(ctx, wallet))

	_, ok, err := cache.Get(ctx, other, "")
	require.NoError(t, err)
	assert.True(t, ok)
}
