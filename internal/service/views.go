package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/views"
	apperrors "github.com/vaultline/session-engine/internal/errors"
	"github.com/vaultline/session-engine/internal/ports"
)

// identitySession is the slice of SessionStore the view service needs.
type identitySession interface {
	Snapshot() domainauth.Session
	SetIdentity(identity *domainauth.Identity)
}

// ViewServiceOptions groups dependencies for ViewService.
type ViewServiceOptions struct {
	Transport ports.Transport
	Cache     ports.ViewCache
	Sessions  identitySession
	Identity  ports.IdentityFetcher // Optional: enables RefreshIdentity
	Logger    *slog.Logger
}

// ViewService serves the cached read-views that mutations invalidate.
type ViewService struct {
	transport ports.Transport
	cache     ports.ViewCache
	sessions  identitySession
	identity  ports.IdentityFetcher
	logger    *slog.Logger
}

// NewViewService constructs a ViewService.
func NewViewService(opts ViewServiceOptions) *ViewService {
	if opts.Transport == nil || opts.Cache == nil || opts.Sessions == nil {
		panic("Transport, ViewCache and Sessions are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewService{
		transport: opts.Transport,
		cache:     opts.Cache,
		sessions:  opts.Sessions,
		identity:  opts.Identity,
		logger:    logger.With("component", "views"),
	}
}

// Wallet returns the wallet summary.
func (s *ViewService) Wallet(ctx context.Context) (json.RawMessage, error) {
	return s.read(ctx, views.Wallet, "", "/wallet")
}

// Transactions returns one page of transaction history.
func (s *ViewService) Transactions(ctx context.Context, page int) (json.RawMessage, error) {
	if page < 1 {
		page = 1
	}
	p := strconv.Itoa(page)
	return s.read(ctx, views.Transactions, "page="+p, "/transactions?page="+p)
}

// Identity returns the user profile view.
func (s *ViewService) Identity(ctx context.Context) (json.RawMessage, error) {
	return s.read(ctx, views.Identity, "", "/users/me")
}

// Beneficiaries returns saved transfer beneficiaries.
func (s *ViewService) Beneficiaries(ctx context.Context) (json.RawMessage, error) {
	return s.read(ctx, views.Beneficiaries, "", "/beneficiaries")
}

// Read dispatches by view name.
func (s *ViewService) Read(ctx context.Context, v views.View, page int) (json.RawMessage, error) {
	switch v {
	case views.Wallet:
		return s.Wallet(ctx)
	case views.Transactions:
		return s.Transactions(ctx, page)
	case views.Identity:
		return s.Identity(ctx)
	case views.Beneficiaries:
		return s.Beneficiaries(ctx)
	default:
		return nil, apperrors.NotFound("unknown view " + string(v))
	}
}

// RefreshIdentity reloads the identity from the backend into the session, so
// verification changes reach the route guards.
func (s *ViewService) RefreshIdentity(ctx context.Context) error {
	if s.identity == nil {
		return nil
	}
	id, err := s.identity.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch identity: %w", err)
	}
	current := s.sessions.Snapshot()
	if current.Identity == nil || current.Identity.Key() != id.Key() {
		return apperrors.Conflict("session changed while refreshing identity")
	}
	s.sessions.SetIdentity(&id)
	return nil
}

func (s *ViewService) read(ctx context.Context, v views.View, variant, path string) (json.RawMessage, error) {
	session := s.sessions.Snapshot()
	if !session.LoggedIn || session.Identity == nil {
		return nil, apperrors.Unauthorized("login required")
	}
	key := views.Key(v, session.Identity.Key())

	body, ok, err := s.cache.Get(ctx, key, variant)
	if err != nil {
		s.logger.WarnContext(ctx, "view cache read failed", "view", string(key), "error", err)
	} else if ok {
		return body, nil
	}

	resp, err := s.transport.Call(ctx, ports.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", v, err)
	}
	if !json.Valid(resp.Body) {
		return nil, apperrors.Internal("backend returned malformed " + string(v) + " view")
	}
	if err := s.cache.Set(ctx, key, variant, resp.Body); err != nil {
		s.logger.WarnContext(ctx, "view cache write failed", "view", string(key), "error", err)
	}
	return resp.Body, nil
}
