// Package biometric holds the domain types of the device-bound challenge-response login.
package biometric

import (
	"fmt"
	"strings"
	"time"
)

// Type is the kind of biometric the device uses to unlock its key.
type Type string

const (
	TypeFingerprint Type = "fingerprint"
	TypeFaceID      Type = "faceid"
)

// ParseType validates a biometric type string.
func ParseType(s string) (Type, error) {
	switch v := Type(strings.ToLower(strings.TrimSpace(s))); v {
	case TypeFingerprint, TypeFaceID:
		return v, nil
	default:
		return "", fmt.Errorf("invalid biometric type: %q (valid options: fingerprint, faceid)", s)
	}
}

// State is the protocol state of an (identifier, device) pair.
type State string

const (
	StateNotEnrolled   State = "not_enrolled"
	StateEnrolled      State = "enrolled"
	StateChallenged    State = "challenged"
	StateAuthenticated State = "authenticated"
	StateLockedOut     State = "locked_out"
)

// Enrollment is the per-device record of a registered public key.
type Enrollment struct {
	DeviceID       string     `json:"device_id"`
	PublicKey      string     `json:"public_key"`
	Type           Type       `json:"biometric_type"`
	DeviceName     string     `json:"device_name"`
	EnrolledAt     time.Time  `json:"enrolled_at"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
}

// IsLocked reports whether login attempts must be refused at now.
func (e Enrollment) IsLocked(now time.Time) bool {
	return e.LockedUntil != nil && now.Before(*e.LockedUntil)
}

// Reset clears the failure counters after a successful login or re-enrollment.
func (e *Enrollment) Reset() {
	e.FailedAttempts = 0
	e.LockedUntil = nil
}

// Status is the read-only projection of an enrollment.
type Status struct {
	Enabled        bool       `json:"enabled"`
	Type           Type       `json:"biometric_type,omitempty"`
	EnrolledAt     *time.Time `json:"enrolled_at,omitempty"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
	DeviceName     string     `json:"device_name,omitempty"`
}

// StatusOf projects an enrollment. A nil enrollment reports Enabled=false.
func StatusOf(e *Enrollment) Status {
	if e == nil {
		return Status{}
	}
	enrolledAt := e.EnrolledAt
	return Status{
		Enabled:        true,
		Type:           e.Type,
		EnrolledAt:     &enrolledAt,
		LockedUntil:    e.LockedUntil,
		FailedAttempts: e.FailedAttempts,
		DeviceName:     e.DeviceName,
	}
}

// Challenge is a short-lived, single-use nonce issued for one (identifier, device) pair.
type Challenge struct {
	Value     string        `json:"challenge"`
	ExpiresIn time.Duration `json:"-"`
}

// EnrollInput groups the parameters of an enrollment.
type EnrollInput struct {
	DeviceID   string
	PublicKey  string
	Type       Type
	DeviceName string
}

// LoginInput groups the parameters of a signature-based login.
type LoginInput struct {
	Identifier string
	DeviceID   string
	Challenge  string
	Signature  string
	PublicKey  string
}
