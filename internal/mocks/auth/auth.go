// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/views"
	"github.com/vaultline/session-engine/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialStore       = (*MemoryCredentialStore)(nil)
	_ ports.IdentityStore         = (*MemoryIdentityStore)(nil)
	_ ports.DeviceSigner          = (*StaticSigner)(nil)
	_ ports.ViewInvalidator       = (*RecordingInvalidator)(nil)
	_ ports.PasswordAuthenticator = (*MockPasswordAuthenticator)(nil)
)

// MemoryCredentialStore is an in-memory credential store for unit tests.
// GetErr/SetErr/RemoveErr inject failures; counters record calls.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	token string

	GetErr    error
	SetErr    error
	RemoveErr error

	// GetHook runs before Get returns; tests use it to interleave transitions.
	GetHook func()

	Gets    int
	Sets    int
	Removes int
}

// NewMemoryCredentialStore creates a store holding token ("" for none).
func NewMemoryCredentialStore(token string) *MemoryCredentialStore {
	return &MemoryCredentialStore{token: token}
}

func (m *MemoryCredentialStore) Get(_ context.Context) (string, error) {
	m.mu.Lock()
	m.Gets++
	token, err, hook := m.token, m.GetErr, m.GetHook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (m *MemoryCredentialStore) Set(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sets++
	if m.SetErr != nil {
		return m.SetErr
	}
	if token == "" {
		return errors.New("token cannot be empty")
	}
	m.token = token
	return nil
}

func (m *MemoryCredentialStore) Remove(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removes++
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.token = ""
	return nil
}

// Token returns the stored token.
func (m *MemoryCredentialStore) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// RemoveCount returns how many times Remove was called.
func (m *MemoryCredentialStore) RemoveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Removes
}

// MemoryIdentityStore is an in-memory identity store for unit tests.
type MemoryIdentityStore struct {
	mu       sync.Mutex
	identity *domainauth.Identity

	LoadErr error
}

// NewMemoryIdentityStore creates a store holding identity (nil for none).
func NewMemoryIdentityStore(identity *domainauth.Identity) *MemoryIdentityStore {
	s := &MemoryIdentityStore{}
	if identity != nil {
		cp := *identity
		s.identity = &cp
	}
	return s
}

func (m *MemoryIdentityStore) Load(_ context.Context) (*domainauth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.identity == nil {
		return nil, nil
	}
	cp := *m.identity
	return &cp, nil
}

func (m *MemoryIdentityStore) Save(_ context.Context, identity domainauth.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = &identity
	return nil
}

func (m *MemoryIdentityStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = nil
	return nil
}

// StaticSigner returns a deterministic signature derived from the challenge.
type StaticSigner struct {
	SignFunc func(ctx context.Context, deviceID, challenge string) (string, error)
	Prefix   string
}

func (s *StaticSigner) Sign(ctx context.Context, deviceID, challenge string) (string, error) {
	if s.SignFunc != nil {
		return s.SignFunc(ctx, deviceID, challenge)
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = "sig"
	}
	return fmt.Sprintf("%s:%s:%s", prefix, deviceID, challenge), nil
}

// RecordingInvalidator records invalidated keys in call order.
type RecordingInvalidator struct {
	mu   sync.Mutex
	keys []views.ViewKey

	// FailOn makes Invalidate fail for the listed keys.
	FailOn map[views.ViewKey]error
}

func (r *RecordingInvalidator) Invalidate(_ context.Context, key views.ViewKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	if err, ok := r.FailOn[key]; ok {
		return err
	}
	return nil
}

// Keys returns the invalidated keys in order.
func (r *RecordingInvalidator) Keys() []views.ViewKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]views.ViewKey(nil), r.keys...)
}

// MockPasswordAuthenticator simulates the backend password login.
type MockPasswordAuthenticator struct {
	LoginFunc func(ctx context.Context, identifier, password string) (ports.LoginResult, error)
	Result    ports.LoginResult
}

func (m *MockPasswordAuthenticator) Login(ctx context.Context, identifier, password string) (ports.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identifier, password)
	}
	if m.Result.Token == "" {
		return ports.LoginResult{}, ErrNotFound
	}
	return m.Result, nil
}

// ErrNotFound is returned by mocks when an entity is not present.
type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var ErrNotFound error = notFoundError{}
