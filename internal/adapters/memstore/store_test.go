package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
)

func expiringIn(d time.Duration) ExpiryFunc {
	return func(string) (time.Time, bool) { return time.Now().Add(d), true }
}

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()
	s := NewCredentialStore(nil)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.Error(t, s.Set(ctx, ""))
	require.NoError(t, s.Set(ctx, "tok"))
	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	require.NoError(t, s.Remove(ctx))
	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCredentialStore_FollowsCredentialExpiry(t *testing.T) {
	ctx := context.Background()

	expired := NewCredentialStore(expiringIn(-time.Second))
	require.ErrorContains(t, expired.Set(ctx, "tok"), "expired")

	s := NewCredentialStore(expiringIn(30 * time.Millisecond))
	require.NoError(t, s.Set(ctx, "tok"))
	time.Sleep(60 * time.Millisecond)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIdentityStore(t *testing.T) {
	ctx := context.Background()
	s := NewIdentityStore()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.Error(t, s.Save(ctx, domainauth.Identity{}))
	require.NoError(t, s.Save(ctx, domainauth.Identity{UserID: "u1", Tier: domainauth.Tier1}))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	got.Tier = domainauth.Tier3
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.Tier1, again.Tier, "Load returns a copy")

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
