// Package devverifier provides an in-memory, config-driven backend for local development
// and end-to-end tests: password login, identity fetch and the biometric verifier.
package devverifier

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/biometric"
	apperrors "github.com/vaultline/session-engine/internal/errors"
	"github.com/vaultline/session-engine/internal/ports"
)

// Config controls the dev verifier behavior.
// Identity.UserID, Identity.Email and Password are required.
type Config struct {
	Identity        domainauth.Identity
	Password        string
	SigningKey      []byte
	TokenTTL        time.Duration // default 15m when zero
	ChallengeTTL    time.Duration // default 60s when zero
	MaxAttempts     int           // default 5 when zero
	LockoutDuration time.Duration // default 15m when zero
	Now             func() time.Time
}

type heldChallenge struct {
	value     string
	expiresAt time.Time
}

// Verifier implements ports.BiometricVerifier for a single configured user. Unlike
// the client it owns the lockout threshold. Accounts exposes password login and
// identity fetch for the same user.
type Verifier struct {
	identity     domainauth.Identity
	password     string
	signingKey   []byte
	tokenTTL     time.Duration
	challengeTTL time.Duration
	maxAttempts  int
	lockout      time.Duration
	now          func() time.Time

	mu         sync.Mutex
	devices    map[string]*biometric.Enrollment
	challenges map[string]heldChallenge
}

var (
	_ ports.BiometricVerifier     = (*Verifier)(nil)
	_ ports.PasswordAuthenticator = (*Accounts)(nil)
	_ ports.IdentityFetcher       = (*Accounts)(nil)
)

// ErrInvalidCredentials is returned by Login for a wrong identifier or password.
var ErrInvalidCredentials = apperrors.Unauthorized("invalid email or password")

// New constructs a dev verifier from Config.
func New(cfg Config) (*Verifier, error) {
	if cfg.Identity.UserID == "" {
		return nil, errors.New("dev verifier: UserID is required")
	}
	if cfg.Identity.Email == "" {
		return nil, errors.New("dev verifier: Email is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("dev verifier: Password is required")
	}
	key := cfg.SigningKey
	if len(key) == 0 {
		key = []byte(uuid.NewString())
	}
	v := &Verifier{
		identity:     cfg.Identity,
		password:     cfg.Password,
		signingKey:   append([]byte(nil), key...),
		tokenTTL:     orDefault(cfg.TokenTTL, 15*time.Minute),
		challengeTTL: orDefault(cfg.ChallengeTTL, 60*time.Second),
		maxAttempts:  cfg.MaxAttempts,
		lockout:      orDefault(cfg.LockoutDuration, 15*time.Minute),
		now:          cfg.Now,
		devices:      make(map[string]*biometric.Enrollment),
		challenges:   make(map[string]heldChallenge),
	}
	if v.maxAttempts <= 0 {
		v.maxAttempts = 5
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Accounts is the password side of the dev backend.
type Accounts struct {
	v *Verifier
}

// Accounts returns the password login and identity fetch backed by v.
func (v *Verifier) Accounts() *Accounts {
	return &Accounts{v: v}
}

// Login checks the configured password and mints a credential.
func (a *Accounts) Login(_ context.Context, identifier, password string) (ports.LoginResult, error) {
	a.v.mu.Lock()
	ok := a.v.matches(identifier) && password == a.v.password
	a.v.mu.Unlock()
	if !ok {
		return ports.LoginResult{}, ErrInvalidCredentials
	}
	return a.v.issue()
}

// Me returns the configured identity.
func (a *Accounts) Me(context.Context) (domainauth.Identity, error) {
	a.v.mu.Lock()
	defer a.v.mu.Unlock()
	return a.v.identity, nil
}

// SetIdentity replaces the identity Me reports, e.g. after a verification step.
func (v *Verifier) SetIdentity(id domainauth.Identity) {
	v.mu.Lock()
	v.identity = id
	v.mu.Unlock()
}

// Enroll registers a device public key. Re-enrolling resets the counters.
func (v *Verifier) Enroll(_ context.Context, in biometric.EnrollInput) (biometric.Enrollment, error) {
	if _, err := decodePublicKey(in.PublicKey); err != nil {
		return biometric.Enrollment{}, err
	}
	e := &biometric.Enrollment{
		DeviceID:   in.DeviceID,
		PublicKey:  in.PublicKey,
		Type:       in.Type,
		DeviceName: in.DeviceName,
		EnrolledAt: v.now().UTC(),
	}
	v.mu.Lock()
	v.devices[in.DeviceID] = e
	v.mu.Unlock()
	return *e, nil
}

// RequestChallenge issues a fresh nonce, replacing any earlier one for the pair.
func (v *Verifier) RequestChallenge(_ context.Context, identifier, deviceID string) (biometric.Challenge, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.devices[deviceID]
	if !ok || !v.matches(identifier) {
		return biometric.Challenge{}, fmt.Errorf("device %s: %w", deviceID, biometric.ErrNotEnrolled)
	}
	now := v.now()
	if e.IsLocked(now) {
		return biometric.Challenge{}, v.rejection(e, "device is locked")
	}

	value := uuid.NewString()
	v.challenges[pairKey(identifier, deviceID)] = heldChallenge{value: value, expiresAt: now.Add(v.challengeTTL)}
	return biometric.Challenge{Value: value, ExpiresIn: v.challengeTTL}, nil
}

// Login verifies an ed25519 signature over the challenge. The challenge is consumed
// whatever the outcome; every refusal counts towards the lockout.
func (v *Verifier) Login(_ context.Context, in biometric.LoginInput) (ports.LoginResult, error) {
	v.mu.Lock()
	e, ok := v.devices[in.DeviceID]
	if !ok || !v.matches(in.Identifier) {
		v.mu.Unlock()
		return ports.LoginResult{}, fmt.Errorf("device %s: %w", in.DeviceID, biometric.ErrNotEnrolled)
	}
	now := v.now()
	if e.IsLocked(now) {
		rej := v.rejection(e, "device is locked")
		v.mu.Unlock()
		return ports.LoginResult{}, rej
	}

	key := pairKey(in.Identifier, in.DeviceID)
	held, had := v.challenges[key]
	delete(v.challenges, key)

	var reason string
	switch {
	case !had || held.value != in.Challenge:
		reason = "unknown challenge"
	case !now.Before(held.expiresAt):
		reason = "challenge expired"
	case in.PublicKey != "" && in.PublicKey != e.PublicKey:
		reason = "public key does not match enrollment"
	case !validSignature(e.PublicKey, in.Challenge, in.Signature):
		reason = "signature invalid"
	}
	if reason != "" {
		e.FailedAttempts++
		if e.FailedAttempts >= v.maxAttempts {
			until := now.Add(v.lockout)
			e.LockedUntil = &until
		}
		rej := v.rejection(e, reason)
		v.mu.Unlock()
		return ports.LoginResult{}, rej
	}
	e.Reset()
	v.mu.Unlock()

	return v.issue()
}

// Disable forgets the device.
func (v *Verifier) Disable(_ context.Context, deviceID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.devices[deviceID]; !ok {
		return fmt.Errorf("device %s: %w", deviceID, biometric.ErrNotEnrolled)
	}
	delete(v.devices, deviceID)
	for k := range v.challenges {
		if strings.HasSuffix(k, "|"+deviceID) {
			delete(v.challenges, k)
		}
	}
	return nil
}

// Status reports the device enrollment; unknown devices are not enabled.
func (v *Verifier) Status(_ context.Context, deviceID string) (biometric.Status, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.devices[deviceID]
	if !ok {
		return biometric.StatusOf(nil), nil
	}
	cp := *e
	return biometric.StatusOf(&cp), nil
}

// rejection must be called with v.mu held.
func (v *Verifier) rejection(e *biometric.Enrollment, msg string) *biometric.Rejection {
	rej := &biometric.Rejection{FailedAttempts: e.FailedAttempts, Message: msg}
	if e.LockedUntil != nil {
		until := *e.LockedUntil
		rej.LockedUntil = &until
	}
	return rej
}

// matches must be called with v.mu held.
func (v *Verifier) matches(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	return strings.EqualFold(identifier, v.identity.Email) || identifier == v.identity.UserID
}

func (v *Verifier) issue() (ports.LoginResult, error) {
	v.mu.Lock()
	id := v.identity
	v.mu.Unlock()

	now := v.now()
	claims := jwt.MapClaims{
		"sub":   id.UserID,
		"email": id.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(v.tokenTTL).Unix(),
		"jti":   uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return ports.LoginResult{Token: token, Identity: id}, nil
}

func pairKey(identifier, deviceID string) string {
	return strings.ToLower(strings.TrimSpace(identifier)) + "|" + deviceID
}

func decodePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

func validSignature(publicKey, challenge, signature string) bool {
	pub, err := decodePublicKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, []byte(challenge), sig)
}
