package httpx

import (
	"context"
	"net/http"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// SessionSnapshotter is anything that can report the current session.
type SessionSnapshotter interface {
	Snapshot() domainauth.Session
}

// SetSessionInContext returns a child context that carries the given session snapshot.
func SetSessionInContext(ctx context.Context, session domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSessionFromContext returns the snapshot stored by WithSession and whether one was present.
func GetSessionFromContext(ctx context.Context) (domainauth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(domainauth.Session)
	return s, ok
}

// WithSession stores one session snapshot per request so a handler sees a
// consistent view even if the session changes mid-request.
func WithSession(sessions SessionSnapshotter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := SetSessionInContext(r.Context(), sessions.Snapshot())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
