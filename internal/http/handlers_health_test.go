package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
)

type fixedSnapshot domainauth.Session

func (f fixedSnapshot) Snapshot() domainauth.Session { return domainauth.Session(f) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		sessions SessionSnapshotter
		wantCode int
		wantBody string
	}{
		{
			name:     "initialized",
			method:   http.MethodGet,
			sessions: fixedSnapshot{Initialized: true},
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok","session":"initialized"}`,
		},
		{
			name:     "no session source",
			method:   http.MethodGet,
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok","session":"initialized"}`,
		},
		{
			name:     "still loading",
			method:   http.MethodGet,
			sessions: fixedSnapshot{},
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"status":"starting","session":"loading"}`,
		},
		{
			name:     "head has no body",
			method:   http.MethodHead,
			sessions: fixedSnapshot{Initialized: true},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler(tt.sessions)(rec, httptest.NewRequest(tt.method, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantBody == "" {
				assert.Zero(t, rec.Body.Len())
				return
			}
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
