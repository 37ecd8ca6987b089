package httpx

import (
	"net/http"
	"strconv"

	"github.com/vaultline/session-engine/internal/domain/navigation"
)

// GuardEvaluator is implemented by the root and area route guards.
type GuardEvaluator interface {
	Evaluate(location string) navigation.Decision
}

// loadingRetryAfter is how long clients wait before asking again while the session settles.
const loadingRetryAfter = 1

// Guard applies a route guard to page routes. Loading answers 503 with Retry-After,
// Redirect answers 303 to the decision target, Render passes through.
func Guard(g GuardEvaluator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Evaluate(r.URL.RequestURI())
			switch d.Action {
			case navigation.Render:
				next.ServeHTTP(w, r)
			case navigation.Redirect:
				http.Redirect(w, r, d.Target, http.StatusSeeOther)
			default:
				w.Header().Set("Retry-After", strconv.Itoa(loadingRetryAfter))
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": navigation.Loading.String()})
			}
		})
	}
}
