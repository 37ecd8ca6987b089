package httpx

import (
	"net/http"
	"strconv"
)

// queryInt reads a positive integer query parameter. Missing, malformed and
// non-positive values fall back to def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}
