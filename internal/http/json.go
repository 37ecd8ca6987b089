package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vaultline/session-engine/internal/domain/biometric"
	apperrors "github.com/vaultline/session-engine/internal/errors"
)

const maxRequestBody = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

type biometricErrorBody struct {
	Error             string     `json:"error"`
	Message           string     `json:"message"`
	DeviceID          string     `json:"device_id,omitempty"`
	FailedAttempts    int        `json:"failed_attempts"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	RetryAfterSeconds int        `json:"retry_after_seconds,omitempty"`
}

// WriteServiceError maps an engine error to a status and writes it.
// Unexpected errors are logged and reported without detail.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var bioErr *biometric.Error
	if errors.As(err, &bioErr) {
		writeBiometricError(w, bioErr)
		return
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, ErrorParams{Code: http.StatusGatewayTimeout, ErrCode: string(apperrors.ErrCodeTimeout), Err: err})
		return
	case errors.Is(err, context.Canceled):
		WriteError(w, ErrorParams{Code: http.StatusRequestTimeout, ErrCode: string(apperrors.ErrCodeCanceled), Err: err})
		return
	case errors.Is(err, biometric.ErrNotEnrolled):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_enrolled", Err: err})
		return
	}

	code := apperrors.GetCode(err)
	if code == "" || code == apperrors.ErrCodeInternal {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: string(apperrors.ErrCodeInternal),
			Err:     errors.New("internal error"),
		})
		return
	}

	body := map[string]string{"error": string(code), "message": err.Error()}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, apperrors.HTTPStatus(code), body)
}

func writeBiometricError(w http.ResponseWriter, e *biometric.Error) {
	now := time.Now()
	body := biometricErrorBody{
		Error:          "biometric_failed",
		Message:        e.Error(),
		DeviceID:       e.DeviceID,
		FailedAttempts: e.FailedAttempts,
		LockedUntil:    e.LockedUntil,
	}
	status := http.StatusUnauthorized
	switch {
	case !e.Retryable(now):
		status = http.StatusLocked
		body.Error = "biometric_locked"
		wait := e.RetryAfter(now)
		body.RetryAfterSeconds = int((wait + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfterSeconds))
	case errors.Is(e, biometric.ErrChallengeUsed), errors.Is(e, biometric.ErrChallengeExpired):
		status = http.StatusConflict
		body.Error = "challenge_invalid"
	case errors.Is(e, biometric.ErrNotEnrolled):
		status = http.StatusNotFound
		body.Error = "not_enrolled"
	}
	WriteJSON(w, status, body)
}
