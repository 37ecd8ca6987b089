package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
)

// SessionAPI is the password login surface of the engine.
type SessionAPI interface {
	Login(ctx context.Context, identifier, password string) (domainauth.Session, error)
	Logout(ctx context.Context) error
	Session() domainauth.Session
}

// SessionHandlers serves /api/session.
type SessionHandlers struct {
	Svc    SessionAPI
	Logger *slog.Logger
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	Session       domainauth.Session `json:"session"`
	FullyVerified bool               `json:"fully_verified"`
}

func newSessionResponse(s domainauth.Session) sessionResponse {
	return sessionResponse{Session: s, FullyVerified: s.IsFullyVerified()}
}

// Login handles POST /api/session/login.
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	session, err := h.Svc.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, newSessionResponse(session))
}

// Logout handles POST /api/session/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context()); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /api/session.
func (h *SessionHandlers) Get(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, newSessionResponse(h.Svc.Session()))
}
