package httpx

import (
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

// HealthHandler reports readiness. Until the first session determination has
// been made the engine answers 503 so callers do not act on a loading session.
func HealthHandler(sessions SessionSnapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Session: "initialized"}
		code := http.StatusOK
		if sessions != nil && !sessions.Snapshot().Initialized {
			resp = healthResponse{Status: "starting", Session: "loading"}
			code = http.StatusServiceUnavailable
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			return
		}
		WriteJSON(w, code, resp)
	}
}
