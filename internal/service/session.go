// Package service holds the session engine: session state, guards, biometric
// login and the recovery and mutation flows built on the ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/navigation"
	apperrors "github.com/vaultline/session-engine/internal/errors"
	"github.com/vaultline/session-engine/internal/ports"
)

// SessionPersistence pairs the credential slot with the optional identity cache.
type SessionPersistence struct {
	Credentials ports.CredentialStore // Required
	Identities  ports.IdentityStore   // Optional: restores identity across restarts
}

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Stores     SessionPersistence
	Clock      *TokenClock
	Navigation *navigation.Memory // Optional: receives the logout flag
	Logger     *slog.Logger
}

// SessionStore is the single owner of the in-memory session state and of writes to
// the credential slot. State transitions are tagged with a generation; a validity
// check that started before a newer transition is discarded instead of applied.
type SessionStore struct {
	creds  ports.CredentialStore
	idents ports.IdentityStore
	clock  *TokenClock
	nav    *navigation.Memory
	logger *slog.Logger

	// writeMu orders credential writes with the generation check that guards them.
	// Readers never take it.
	writeMu sync.Mutex

	mu    sync.RWMutex
	state domainauth.Session
	token string
	gen   uint64

	checks singleflight.Group
}

// NewSessionStore constructs a SessionStore in the uninitialized state.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	if opts.Stores.Credentials == nil {
		panic("CredentialStore is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = NewTokenClock(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		creds:  opts.Stores.Credentials,
		idents: opts.Stores.Identities,
		clock:  clock,
		nav:    opts.Navigation,
		logger: logger.With("component", "session_store"),
	}
}

// Snapshot returns a copy of the current session state.
func (s *SessionStore) Snapshot() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.state)
}

// CredentialValid reports whether the credential held by the session is unexpired
// right now. It does not touch storage.
func (s *SessionStore) CredentialValid() bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	return !s.clock.IsExpired(token)
}

// Bootstrap restores the persisted identity, if any, and runs InitializeAuth with it.
func (s *SessionStore) Bootstrap(ctx context.Context) domainauth.Session {
	var persisted *domainauth.Identity
	if s.idents != nil {
		id, err := s.idents.Load(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "load persisted identity failed", "error", err)
		} else {
			persisted = id
		}
	}
	return s.InitializeAuth(ctx, persisted)
}

// InitializeAuth makes the first determination of the session at startup. A valid
// stored credential plus a persisted identity yields a logged-in session; anything
// else clears the stored credential and yields a logged-out one. It never fails:
// storage and decode errors degrade to logged out.
func (s *SessionStore) InitializeAuth(ctx context.Context, persisted *domainauth.Identity) domainauth.Session {
	gen := s.generation()

	token, readErr := s.creds.Get(ctx)
	if readErr != nil {
		s.logger.WarnContext(ctx, "read stored credential failed", "error", readErr)
		token = ""
	}
	valid := persisted != nil && token != "" && !s.clock.IsExpired(token)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.current(gen) {
		s.logger.DebugContext(ctx, "initialization superseded by newer session transition")
		s.markInitialized()
		return s.Snapshot()
	}

	if valid {
		s.commit(domainauth.Session{Identity: cloneIdentity(persisted), LoggedIn: true, Initialized: true}, token)
		s.logger.InfoContext(ctx, "session restored", "user_id", persisted.UserID)
		return s.Snapshot()
	}

	if token != "" || readErr != nil {
		s.removeCredential(ctx)
	}
	if persisted != nil {
		s.clearIdentity(ctx)
	}
	s.commit(domainauth.Session{Initialized: true}, "")
	s.logger.InfoContext(ctx, "session initialized logged out")
	return s.Snapshot()
}

// CheckToken re-evaluates the stored credential. An expired or missing credential
// clears the credential slot and the identity; a valid one is a no-op. Concurrent
// callers share one evaluation. It returns whether the session is logged in after
// the check.
func (s *SessionStore) CheckToken(ctx context.Context) bool {
	v, _, _ := s.checks.Do("check", func() (any, error) {
		return s.checkToken(ctx), nil
	})
	loggedIn, _ := v.(bool)
	return loggedIn
}

func (s *SessionStore) checkToken(ctx context.Context) bool {
	gen := s.generation()

	token, readErr := s.creds.Get(ctx)
	if readErr != nil {
		// A failed read is not an expiry. Judge the credential the session holds.
		s.mu.RLock()
		token = s.token
		s.mu.RUnlock()
		s.logger.WarnContext(ctx, "read stored credential failed, using held credential", "error", readErr)
		if token == "" {
			return s.Snapshot().LoggedIn
		}
	}

	if token != "" && !s.clock.IsExpired(token) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen == gen {
			s.token = token
		}
		return s.state.LoggedIn
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.current(gen) {
		s.logger.DebugContext(ctx, "token check superseded by newer session transition")
		return s.Snapshot().LoggedIn
	}

	snap := s.Snapshot()
	if token == "" && readErr == nil && !snap.LoggedIn && snap.Identity == nil {
		return false
	}

	s.removeCredential(ctx)
	s.clearIdentity(ctx)
	s.commit(domainauth.Session{Initialized: true}, "")
	s.logger.InfoContext(ctx, "credential expired, session cleared")
	return false
}

// SetIdentity replaces the identity. Clearing it also clears LoggedIn.
func (s *SessionStore) SetIdentity(identity *domainauth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state.Identity = cloneIdentity(identity)
	if identity == nil {
		s.state.LoggedIn = false
	}
}

// SetLoggedIn sets the logged-in flag. It stays false while no identity is present.
func (s *SessionStore) SetLoggedIn(loggedIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state.LoggedIn = loggedIn && s.state.Identity != nil
}

// CompleteLogin persists a freshly issued credential and moves the session to
// logged in. Password and biometric login both finish here.
func (s *SessionStore) CompleteLogin(ctx context.Context, token string, identity domainauth.Identity) (domainauth.Session, error) {
	if s.clock.IsExpired(token) {
		return domainauth.Session{}, apperrors.Unauthorized("issued credential is expired or malformed")
	}
	if identity.UserID == "" {
		return domainauth.Session{}, apperrors.Validation("identity user id is required")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.creds.Set(ctx, token); err != nil {
		return domainauth.Session{}, fmt.Errorf("store credential: %w", err)
	}
	if s.idents != nil {
		if err := s.idents.Save(ctx, identity); err != nil {
			s.logger.WarnContext(ctx, "persist identity failed", "error", err)
		}
	}
	s.commit(domainauth.Session{Identity: &identity, LoggedIn: true, Initialized: true}, token)
	if s.nav != nil {
		// A logout flag the protected area never saw must not outlive the next login.
		s.nav.ConsumeLoggingOut()
	}
	s.logger.InfoContext(ctx, "login completed", "user_id", identity.UserID)
	return s.Snapshot(), nil
}

// Logout raises the logout-in-progress flag so the protected-area guard does not
// treat the cleared session as an expiry, then clears the session.
func (s *SessionStore) Logout(ctx context.Context) error {
	if s.nav != nil {
		s.nav.MarkLoggingOut()
	}
	err := s.Clear(ctx)
	s.logger.InfoContext(ctx, "logged out")
	return err
}

// Clear removes the credential and identity and leaves the session logged out.
// State is reset even when storage fails; the storage error is returned.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var errs []error
	if err := s.creds.Remove(ctx); err != nil {
		errs = append(errs, fmt.Errorf("remove credential: %w", err))
	}
	if s.idents != nil {
		if err := s.idents.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear identity: %w", err))
		}
	}
	s.commit(domainauth.Session{Initialized: true}, "")
	return errors.Join(errs...)
}

// Reset returns the in-memory state to uninitialized without touching storage.
func (s *SessionStore) Reset() {
	s.commit(domainauth.Session{}, "")
}

func (s *SessionStore) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *SessionStore) current(gen uint64) bool {
	return s.generation() == gen
}

func (s *SessionStore) commit(next domainauth.Session, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = next
	s.token = token
}

// markInitialized records that a determination happened even though the
// initializing check itself was superseded.
func (s *SessionStore) markInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Initialized {
		s.gen++
		s.state.Initialized = true
	}
}

func (s *SessionStore) removeCredential(ctx context.Context) {
	if err := s.creds.Remove(ctx); err != nil {
		s.logger.WarnContext(ctx, "remove stored credential failed", "error", err)
	}
}

func (s *SessionStore) clearIdentity(ctx context.Context) {
	if s.idents == nil {
		return
	}
	if err := s.idents.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear persisted identity failed", "error", err)
	}
}

func cloneIdentity(id *domainauth.Identity) *domainauth.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

func cloneSession(s domainauth.Session) domainauth.Session {
	s.Identity = cloneIdentity(s.Identity)
	return s
}
