package biometric

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel reasons carried by *Error.
var (
	ErrLockedOut        = errors.New("biometric login locked")
	ErrRejected         = errors.New("biometric signature rejected")
	ErrChallengeUsed    = errors.New("challenge already used")
	ErrChallengeExpired = errors.New("challenge expired or unknown")
	ErrNotEnrolled      = errors.New("device not enrolled")
)

// Error is a biometric failure surfaced to the user.
// LockedUntil is set when the verifier (or the local record) reports a lockout.
type Error struct {
	Reason         error
	DeviceID       string
	FailedAttempts int
	LockedUntil    *time.Time
}

func (e *Error) Error() string {
	if e.LockedUntil != nil {
		return fmt.Sprintf("%v: device %s locked until %s", e.Reason, e.DeviceID, e.LockedUntil.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("%v: device %s", e.Reason, e.DeviceID)
}

// Unwrap exposes the sentinel reason to errors.Is.
func (e *Error) Unwrap() error { return e.Reason }

// Retryable is false while a lockout is in force; the UI shows a countdown instead of a retry button.
func (e *Error) Retryable(now time.Time) bool {
	return e.LockedUntil == nil || !now.Before(*e.LockedUntil)
}

// RetryAfter returns how long until a new attempt may be made. Zero when not locked.
func (e *Error) RetryAfter(now time.Time) time.Duration {
	if e.LockedUntil == nil {
		return 0
	}
	if d := e.LockedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Rejection is returned by a verifier when it refuses a signature.
// The verifier alone decides when FailedAttempts turns into a lockout.
type Rejection struct {
	FailedAttempts int
	LockedUntil    *time.Time
	Message        string
}

func (r *Rejection) Error() string {
	if r.Message != "" {
		return r.Message
	}
	return "signature rejected"
}
