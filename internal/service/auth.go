package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	apperrors "github.com/vaultline/session-engine/internal/errors"
	"github.com/vaultline/session-engine/internal/ports"
)

// sessionLifecycle is the slice of SessionStore the auth flows drive.
type sessionLifecycle interface {
	CompleteLogin(ctx context.Context, token string, identity domainauth.Identity) (domainauth.Session, error)
	Logout(ctx context.Context) error
	Snapshot() domainauth.Session
}

// modalCloser closes recovery modals on logout.
type modalCloser interface {
	CloseAll()
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Passwords ports.PasswordAuthenticator
	Sessions  sessionLifecycle
	Recovery  modalCloser // Optional
}

// AuthService orchestrates password login and logout on top of SessionStore.
type AuthService struct {
	passwords ports.PasswordAuthenticator
	sessions  sessionLifecycle
	recovery  modalCloser
}

var errEmptyCredentials = errors.New("identifier and password are required")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Sessions == nil {
		panic("SessionStore is required")
	}
	return &AuthService{
		passwords: opts.Passwords,
		sessions:  opts.Sessions,
		recovery:  opts.Recovery,
	}
}

// Login authenticates with identifier and password and completes the session.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (domainauth.Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return domainauth.Session{}, apperrors.Wrap(errEmptyCredentials, apperrors.ErrCodeValidation, errEmptyCredentials.Error())
	}
	if s.passwords == nil {
		return domainauth.Session{}, apperrors.Internal("password login is not configured")
	}

	result, err := s.passwords.Login(ctx, identifier, password)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("password login: %w", err)
	}

	session, err := s.sessions.CompleteLogin(ctx, result.Token, result.Identity)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("complete login: %w", err)
	}
	slog.InfoContext(ctx, "password login succeeded", "user_id", result.Identity.UserID)
	return session, nil
}

// Logout ends the session and closes any recovery modal.
func (s *AuthService) Logout(ctx context.Context) error {
	if s.recovery != nil {
		s.recovery.CloseAll()
	}
	if err := s.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Session returns the current session snapshot.
func (s *AuthService) Session() domainauth.Session {
	return s.sessions.Snapshot()
}
