// Package redis provides Redis-based adapters for the session engine.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
)

const defaultPrefix = "vaultline:default:"

// ExpiryFunc reads the expiry instant out of a credential.
type ExpiryFunc func(token string) (time.Time, bool)

// CredentialStore keeps the single bearer credential in Redis. When an ExpiryFunc
// is set the key expires together with the credential.
type CredentialStore struct {
	client redis.UniversalClient
	key    string
	expiry ExpiryFunc
}

// NewCredentialStore creates a credential store under prefix ("" for the default).
func NewCredentialStore(client redis.UniversalClient, prefix string, expiry ExpiryFunc) *CredentialStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &CredentialStore{client: client, key: prefix + "credential", expiry: expiry}
}

// Get returns the stored credential, or "" when none is stored.
func (s *CredentialStore) Get(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return token, nil
}

func (s *CredentialStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("credential cannot be empty")
	}

	var ttl time.Duration
	if s.expiry != nil {
		if exp, ok := s.expiry(token); ok {
			ttl = time.Until(exp)
			if ttl <= 0 {
				// Credential is already expired, don't save it
				return errors.New("credential is expired")
			}
		}
	}
	return s.client.Set(ctx, s.key, token, ttl).Err()
}

func (s *CredentialStore) Remove(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// IdentityStore keeps the last known identity so a restart can restore the session.
type IdentityStore struct {
	client redis.UniversalClient
	key    string
}

// NewIdentityStore creates an identity store under prefix ("" for the default).
func NewIdentityStore(client redis.UniversalClient, prefix string) *IdentityStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &IdentityStore{client: client, key: prefix + "identity"}
}

// Load returns the persisted identity, or nil when none is stored.
func (s *IdentityStore) Load(ctx context.Context) (*domainauth.Identity, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var id domainauth.Identity
	if unmarshalErr := json.Unmarshal(data, &id); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", unmarshalErr)
	}
	return &id, nil
}

func (s *IdentityStore) Save(ctx context.Context, identity domainauth.Identity) error {
	if identity.UserID == "" {
		return errors.New("identity user id cannot be empty")
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *IdentityStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
