package ports

// Package ports defines interfaces (hexagonal ports) for the engine's collaborators.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/biometric"
)

// CredentialStore holds the session token durably across restarts.
// Get returns "" with a nil error when no credential is stored.
// Only the session store and the logout flow write through it.
type CredentialStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Remove(ctx context.Context) error
}

// IdentityStore persists the last known identity so the session can be restored on start.
// Load returns nil with a nil error when nothing is stored.
type IdentityStore interface {
	Load(ctx context.Context) (*domainauth.Identity, error)
	Save(ctx context.Context, identity domainauth.Identity) error
	Clear(ctx context.Context) error
}

// DeviceSigner signs a challenge with a device-held key.
// Private key material never crosses this boundary.
type DeviceSigner interface {
	Sign(ctx context.Context, deviceID, challenge string) (signature string, err error)
}

// LoginResult is what a successful login yields: a credential and the principal.
type LoginResult struct {
	Token    string
	Identity domainauth.Identity
}

// BiometricVerifier is the remote side of the biometric protocol.
// A refused signature is reported as *biometric.Rejection.
type BiometricVerifier interface {
	Enroll(ctx context.Context, in biometric.EnrollInput) (biometric.Enrollment, error)
	RequestChallenge(ctx context.Context, identifier, deviceID string) (biometric.Challenge, error)
	Login(ctx context.Context, in biometric.LoginInput) (LoginResult, error)
	Disable(ctx context.Context, deviceID string) error
	Status(ctx context.Context, deviceID string) (biometric.Status, error)
}

// PasswordAuthenticator performs the password login against the backend.
type PasswordAuthenticator interface {
	Login(ctx context.Context, identifier, password string) (LoginResult, error)
}

// IdentityFetcher loads the current user's identity from the backend.
type IdentityFetcher interface {
	Me(ctx context.Context) (domainauth.Identity, error)
}
