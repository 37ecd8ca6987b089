package ports

import (
	"context"

	"github.com/vaultline/session-engine/internal/domain/views"
)

// Request is a logical call to the backend API.
type Request struct {
	Method string
	Path   string
	Body   any
	// Anonymous skips attaching the stored credential.
	Anonymous bool
}

// Response is a successful backend reply.
type Response struct {
	Status int
	Body   []byte
}

// Transport turns a logical request into a network call.
// Refusals are returned as *recovery.Failure.
type Transport interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// ViewInvalidator marks a cached read-view stale so the next read refetches it.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, key views.ViewKey) error
}

// ViewCache holds fetched read-views. One key may carry several variants (for
// example transaction history pages); invalidating the key drops all of them.
type ViewCache interface {
	ViewInvalidator
	Get(ctx context.Context, key views.ViewKey, variant string) ([]byte, bool, error)
	Set(ctx context.Context, key views.ViewKey, variant string, value []byte) error
}
