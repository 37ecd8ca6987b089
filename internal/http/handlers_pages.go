package httpx

import (
	"net/http"

	"github.com/vaultline/session-engine/internal/domain/navigation"
)

type pageResponse struct {
	Page    string          `json:"page"`
	Session sessionResponse `json:"session"`
}

// pageHandler answers a guarded page with what the UI should render there.
func pageHandler(w http.ResponseWriter, r *http.Request) {
	resp := pageResponse{Page: navigation.PathOf(r.URL.RequestURI())}
	if s, ok := GetSessionFromContext(r.Context()); ok {
		resp.Session = newSessionResponse(s)
	}
	WriteJSON(w, http.StatusOK, resp)
}
