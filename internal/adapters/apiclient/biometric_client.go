package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vaultline/session-engine/internal/domain/biometric"
	"github.com/vaultline/session-engine/internal/domain/recovery"
	"github.com/vaultline/session-engine/internal/ports"
)

// BiometricClient implements ports.BiometricVerifier against the backend.
type BiometricClient struct {
	transport ports.Transport
}

func NewBiometricClient(transport ports.Transport) *BiometricClient {
	return &BiometricClient{transport: transport}
}

type enrollRequest struct {
	DeviceID   string         `json:"device_id"`
	PublicKey  string         `json:"public_key"`
	Type       biometric.Type `json:"biometric_type"`
	DeviceName string         `json:"device_name"`
}

type challengeRequest struct {
	Identifier string `json:"identifier"`
	DeviceID   string `json:"device_id"`
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

type biometricLoginRequest struct {
	Identifier string `json:"identifier"`
	DeviceID   string `json:"device_id"`
	Challenge  string `json:"challenge"`
	Signature  string `json:"signature"`
	PublicKey  string `json:"public_key,omitempty"`
}

func (c *BiometricClient) Enroll(ctx context.Context, in biometric.EnrollInput) (biometric.Enrollment, error) {
	resp, err := c.transport.Call(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   "/auth/biometric/enroll",
		Body: enrollRequest{
			DeviceID:   in.DeviceID,
			PublicKey:  in.PublicKey,
			Type:       in.Type,
			DeviceName: in.DeviceName,
		},
	})
	if err != nil {
		return biometric.Enrollment{}, err
	}
	var out biometric.Enrollment
	if err := decodeJSON(resp, &out); err != nil {
		return biometric.Enrollment{}, fmt.Errorf("enroll: %w", err)
	}
	if out.DeviceID == "" {
		out.DeviceID = in.DeviceID
	}
	return out, nil
}

func (c *BiometricClient) RequestChallenge(ctx context.Context, identifier, deviceID string) (biometric.Challenge, error) {
	resp, err := c.transport.Call(ctx, ports.Request{
		Method:    http.MethodPost,
		Path:      "/auth/biometric/challenge",
		Body:      challengeRequest{Identifier: identifier, DeviceID: deviceID},
		Anonymous: true,
	})
	if err != nil {
		// Only a lockout is a rejection here; anything else is a plain failure.
		if rej := rejectionOf(err); rej != nil && rej.LockedUntil != nil {
			return biometric.Challenge{}, rej
		}
		return biometric.Challenge{}, err
	}
	var out challengeResponse
	if err := decodeJSON(resp, &out); err != nil {
		return biometric.Challenge{}, fmt.Errorf("challenge: %w", err)
	}
	return biometric.Challenge{
		Value:     out.Challenge,
		ExpiresIn: time.Duration(out.ExpiresIn) * time.Second,
	}, nil
}

func (c *BiometricClient) Login(ctx context.Context, in biometric.LoginInput) (ports.LoginResult, error) {
	resp, err := c.transport.Call(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   "/auth/biometric/login",
		Body: biometricLoginRequest{
			Identifier: in.Identifier,
			DeviceID:   in.DeviceID,
			Challenge:  in.Challenge,
			Signature:  in.Signature,
			PublicKey:  in.PublicKey,
		},
		Anonymous: true,
	})
	if err != nil {
		if rej := rejectionOf(err); rej != nil {
			return ports.LoginResult{}, rej
		}
		return ports.LoginResult{}, err
	}
	var out loginResponse
	if err := decodeJSON(resp, &out); err != nil {
		return ports.LoginResult{}, fmt.Errorf("biometric login: %w", err)
	}
	return out.result()
}

func (c *BiometricClient) Disable(ctx context.Context, deviceID string) error {
	_, err := c.transport.Call(ctx, ports.Request{
		Method: http.MethodDelete,
		Path:   "/auth/biometric/devices/" + url.PathEscape(deviceID),
	})
	return err
}

func (c *BiometricClient) Status(ctx context.Context, deviceID string) (biometric.Status, error) {
	resp, err := c.transport.Call(ctx, ports.Request{
		Method: http.MethodGet,
		Path:   "/auth/biometric/devices/" + url.PathEscape(deviceID) + "/status",
	})
	if err != nil {
		var f *recovery.Failure
		if errors.As(err, &f) && f.Status == http.StatusNotFound {
			return biometric.Status{}, nil
		}
		return biometric.Status{}, err
	}
	var out biometric.Status
	if err := decodeJSON(resp, &out); err != nil {
		return biometric.Status{}, fmt.Errorf("status: %w", err)
	}
	return out, nil
}

// rejectionOf maps a 401/403/423 reply into the verifier's Rejection.
func rejectionOf(err error) *biometric.Rejection {
	var f *recovery.Failure
	if !errors.As(err, &f) {
		return nil
	}
	switch f.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusLocked:
	default:
		return nil
	}

	rej := &biometric.Rejection{Message: f.Message}
	fields := f.Data
	if nested, ok := fields["data"].(map[string]any); ok {
		fields = nested
	}
	if n, ok := fields["failed_attempts"].(float64); ok {
		rej.FailedAttempts = int(n)
	}
	if s, ok := fields["locked_until"].(string); ok {
		if ts, parseErr := time.Parse(time.RFC3339, s); parseErr == nil {
			rej.LockedUntil = &ts
		}
	}
	if rej.LockedUntil == nil && f.Status == http.StatusLocked {
		if secs, ok := fields["retry_after"].(float64); ok && secs > 0 {
			until := time.Now().Add(time.Duration(secs) * time.Second)
			rej.LockedUntil = &until
		}
	}
	return rej
}
