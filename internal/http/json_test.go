package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/session-engine/internal/domain/biometric"
	apperrors "github.com/vaultline/session-engine/internal/errors"
)

func TestWriteServiceError(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	lockedUntil := time.Now().Add(90 * time.Second)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperrors.ValidationField("bvn", "bvn must be 11 digits"), http.StatusBadRequest, "validation"},
		{"unauthorized", apperrors.Unauthorized("login required"), http.StatusUnauthorized, "unauthorized"},
		{"not found", apperrors.NotFound("unknown view"), http.StatusNotFound, "not_found"},
		{"conflict", apperrors.Conflict("retry is not available"), http.StatusConflict, "conflict"},
		{"wrapped app error", fmt.Errorf("transfer: %w", apperrors.Unauthorized("session rejected")), http.StatusUnauthorized, "unauthorized"},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"canceled", context.Canceled, http.StatusRequestTimeout, "canceled"},
		{"not enrolled", fmt.Errorf("device d1: %w", biometric.ErrNotEnrolled), http.StatusNotFound, "not_enrolled"},
		{"unknown", errors.New("socket closed"), http.StatusInternalServerError, "internal"},
		{"internal", apperrors.Internal("verifier returned an empty challenge"), http.StatusInternalServerError, "internal"},
		{
			"rejected",
			&biometric.Error{Reason: biometric.ErrRejected, DeviceID: "d1", FailedAttempts: 2},
			http.StatusUnauthorized, "biometric_failed",
		},
		{
			"locked",
			&biometric.Error{Reason: biometric.ErrLockedOut, DeviceID: "d1", FailedAttempts: 5, LockedUntil: &lockedUntil},
			http.StatusLocked, "biometric_locked",
		},
		{
			"challenge used",
			&biometric.Error{Reason: biometric.ErrChallengeUsed, DeviceID: "d1"},
			http.StatusConflict, "challenge_invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, httptest.NewRequest(http.MethodPost, "/api/transfers", nil), quiet, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), slog.New(slog.NewTextHandler(io.Discard, nil)),
		errors.New("dial tcp 10.0.0.7:6379: connection refused"))

	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
}

func TestWriteServiceError_LockoutRetryAfter(t *testing.T) {
	until := time.Now().Add(90 * time.Second)
	rec := httptest.NewRecorder()

	WriteServiceError(rec, httptest.NewRequest(http.MethodPost, "/", nil), nil,
		&biometric.Error{Reason: biometric.ErrLockedOut, DeviceID: "d1", FailedAttempts: 5, LockedUntil: &until})

	var body biometricErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.FailedAttempts)
	assert.InDelta(t, 90, body.RetryAfterSeconds, 2)
	assert.Equal(t, fmt.Sprint(body.RetryAfterSeconds), rec.Header().Get("Retry-After"))
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		PIN string `json:"pin"`
	}

	rec := httptest.NewRecorder()
	ok := DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pin":"1234"}`)), &dst)
	assert.True(t, ok)
	assert.Equal(t, "1234", dst.PIN)

	rec = httptest.NewRecorder()
	ok = DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pin":"1234","extra":1}`)), &dst)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}
