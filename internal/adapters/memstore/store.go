// Package memstore keeps the credential and identity in process, for single-run
// and dev setups where nothing should survive a restart.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/ports"
)

var (
	_ ports.CredentialStore = (*CredentialStore)(nil)
	_ ports.IdentityStore   = (*IdentityStore)(nil)
)

const credentialKey = "credential"

// ExpiryFunc reads the expiry instant out of a credential.
type ExpiryFunc func(token string) (time.Time, bool)

// CredentialStore holds the bearer credential. With an ExpiryFunc the entry
// disappears when the credential expires.
type CredentialStore struct {
	cache  *ttlcache.Cache[string, string]
	expiry ExpiryFunc
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore(expiry ExpiryFunc) *CredentialStore {
	return &CredentialStore{
		cache: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
		expiry: expiry,
	}
}

// Get returns the stored credential, or "" when none is stored.
func (s *CredentialStore) Get(context.Context) (string, error) {
	item := s.cache.Get(credentialKey)
	if item == nil || item.IsExpired() {
		return "", nil
	}
	return item.Value(), nil
}

func (s *CredentialStore) Set(_ context.Context, token string) error {
	if token == "" {
		return errors.New("credential cannot be empty")
	}
	ttl := ttlcache.NoTTL
	if s.expiry != nil {
		if exp, ok := s.expiry(token); ok {
			ttl = time.Until(exp)
			if ttl <= 0 {
				return errors.New("credential is expired")
			}
		}
	}
	s.cache.Set(credentialKey, token, ttl)
	return nil
}

func (s *CredentialStore) Remove(context.Context) error {
	s.cache.Delete(credentialKey)
	return nil
}

// IdentityStore holds the last known identity.
type IdentityStore struct {
	mu       sync.Mutex
	identity *domainauth.Identity
}

// NewIdentityStore creates an empty identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{}
}

// Load returns a copy of the stored identity, or nil when none is stored.
func (s *IdentityStore) Load(context.Context) (*domainauth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil, nil
	}
	cp := *s.identity
	return &cp, nil
}

func (s *IdentityStore) Save(_ context.Context, identity domainauth.Identity) error {
	if identity.UserID == "" {
		return errors.New("identity has no user id")
	}
	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()
	return nil
}

func (s *IdentityStore) Clear(context.Context) error {
	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()
	return nil
}
