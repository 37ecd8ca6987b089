package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vaultline/session-engine/internal/domain/views"
)

// ViewAPI reads cached views.
type ViewAPI interface {
	Read(ctx context.Context, v views.View, page int) (json.RawMessage, error)
}

// ViewHandlers serves GET /api/views/{view}.
type ViewHandlers struct {
	Svc    ViewAPI
	Logger *slog.Logger
}

// Get handles GET /api/views/{view}?page=N.
func (h *ViewHandlers) Get(w http.ResponseWriter, r *http.Request) {
	body, err := h.Svc.Read(r.Context(), views.View(r.PathValue("view")), queryInt(r, "page", 1))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
