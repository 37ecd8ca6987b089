package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/biometric"
	apperrors "github.com/vaultline/session-engine/internal/errors"
)

// BiometricAPI is the device-bound login surface of the engine.
type BiometricAPI interface {
	Enroll(ctx context.Context, in biometric.EnrollInput) (biometric.Enrollment, error)
	RequestChallenge(ctx context.Context, identifier, deviceID string) (biometric.Challenge, error)
	Login(ctx context.Context, in biometric.LoginInput) (domainauth.Session, error)
	LoginWithDevice(ctx context.Context, identifier, deviceID, publicKey string) (domainauth.Session, error)
	Disable(ctx context.Context, deviceID string) error
	Status(ctx context.Context, deviceID string) (biometric.Status, error)
	State(identifier, deviceID string) biometric.State
}

// DeviceKeys exposes public keys of devices whose private keys the server holds.
type DeviceKeys interface {
	PublicKey(deviceID string) (string, error)
}

// BiometricHandlers serves /api/biometric.
type BiometricHandlers struct {
	Svc    BiometricAPI
	Keys   DeviceKeys // Optional
	Logger *slog.Logger
}

type enrollRequest struct {
	DeviceID   string `json:"device_id"`
	PublicKey  string `json:"public_key"`
	Type       string `json:"biometric_type"`
	DeviceName string `json:"device_name"`
}

type challengeRequest struct {
	Identifier string `json:"identifier"`
	DeviceID   string `json:"device_id"`
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresIn int    `json:"expires_in"`
}

type biometricLoginRequest struct {
	Identifier string `json:"identifier"`
	DeviceID   string `json:"device_id"`
	Challenge  string `json:"challenge"`
	Signature  string `json:"signature"`
	PublicKey  string `json:"public_key"`
}

type deviceKeyResponse struct {
	DeviceID  string `json:"device_id"`
	PublicKey string `json:"public_key"`
}

type deviceResponse struct {
	biometric.Status
	State biometric.State `json:"state,omitempty"`
}

// Enroll handles POST /api/biometric/enroll.
func (h *BiometricHandlers) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	typ, err := biometric.ParseType(req.Type)
	if err != nil {
		WriteServiceError(w, r, h.Logger, apperrors.ValidationField("biometric_type", err.Error()))
		return
	}
	enrollment, err := h.Svc.Enroll(r.Context(), biometric.EnrollInput{
		DeviceID:   req.DeviceID,
		PublicKey:  req.PublicKey,
		Type:       typ,
		DeviceName: req.DeviceName,
	})
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, enrollment)
}

// Challenge handles POST /api/biometric/challenge.
func (h *BiometricHandlers) Challenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	ch, err := h.Svc.RequestChallenge(r.Context(), req.Identifier, req.DeviceID)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, challengeResponse{Challenge: ch.Value, ExpiresIn: int(ch.ExpiresIn / time.Second)})
}

// Login handles POST /api/biometric/login. Without challenge and signature the
// server-side device signer runs the whole flow.
func (h *BiometricHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req biometricLoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	var (
		session domainauth.Session
		err     error
	)
	if req.Challenge == "" && req.Signature == "" {
		session, err = h.Svc.LoginWithDevice(r.Context(), req.Identifier, req.DeviceID, req.PublicKey)
	} else {
		session, err = h.Svc.Login(r.Context(), biometric.LoginInput{
			Identifier: req.Identifier,
			DeviceID:   req.DeviceID,
			Challenge:  req.Challenge,
			Signature:  req.Signature,
			PublicKey:  req.PublicKey,
		})
	}
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, newSessionResponse(session))
}

// Disable handles DELETE /api/biometric/devices/{deviceID}.
func (h *BiometricHandlers) Disable(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Disable(r.Context(), r.PathValue("deviceID")); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/biometric/devices/{deviceID}[?identifier=...].
func (h *BiometricHandlers) Status(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("deviceID")
	st, err := h.Svc.Status(r.Context(), deviceID)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	resp := deviceResponse{Status: st}
	if identifier := r.URL.Query().Get("identifier"); identifier != "" {
		resp.State = h.Svc.State(identifier, deviceID)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// PublicKey handles GET /api/biometric/devices/{deviceID}/key.
func (h *BiometricHandlers) PublicKey(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("deviceID")
	if deviceID == "" {
		WriteServiceError(w, r, h.Logger, apperrors.ValidationField("device_id", "device id is required"))
		return
	}
	key, err := h.Keys.PublicKey(deviceID)
	if err != nil {
		WriteServiceError(w, r, h.Logger, fmt.Errorf("device key: %w", err))
		return
	}
	WriteJSON(w, http.StatusOK, deviceKeyResponse{DeviceID: deviceID, PublicKey: key})
}
