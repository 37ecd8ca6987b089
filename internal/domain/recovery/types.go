// Package recovery contains the transaction failure taxonomy and the recovery modal state.
package recovery

import (
	"fmt"
	"strconv"
)

// Failure is the failure shape returned by the transport for a refused operation.
// Only the fields read by the classifier are modelled; Data carries the rest verbatim.
type Failure struct {
	Message   string         `json:"message"`
	Code      string         `json:"code,omitempty"`
	ErrorCode string         `json:"errorCode,omitempty"`
	Status    int            `json:"status,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

func (f *Failure) Error() string {
	code := f.AnyCode()
	switch {
	case f.Message != "" && code != "":
		return fmt.Sprintf("%s (%s)", f.Message, code)
	case f.Message != "":
		return f.Message
	case code != "":
		return code
	case f.Status != 0:
		return "request failed with status " + strconv.Itoa(f.Status)
	default:
		return "request failed"
	}
}

// AnyCode returns Code, falling back to ErrorCode.
func (f *Failure) AnyCode() string {
	if f.Code != "" {
		return f.Code
	}
	return f.ErrorCode
}

// Kind is the classification of a failed money-movement operation.
type Kind string

const (
	KindInsufficientBalance Kind = "insufficient_balance"
	KindInvalidCredential   Kind = "invalid_credential"
	KindGeneric             Kind = "generic"
)

// DefaultGenericMessage is shown when a failure carries no message at all.
const DefaultGenericMessage = "Payment could not be processed"

// ClassifiedError is the normalized result of interpreting a raw failure.
// Only the fields of the matching Kind are populated.
type ClassifiedError struct {
	Kind Kind `json:"kind"`

	// InsufficientBalance
	RequiredAmount *float64 `json:"required_amount,omitempty"`
	CurrentBalance *float64 `json:"current_balance,omitempty"`

	// InvalidCredential
	AttemptsRemaining *int `json:"attempts_remaining,omitempty"`

	// Generic (Message is also kept for the other kinds)
	Message       string `json:"message,omitempty"`
	Code          string `json:"code,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Shortfall returns required minus current when both are known and positive.
func (c ClassifiedError) Shortfall() (float64, bool) {
	if c.RequiredAmount == nil || c.CurrentBalance == nil {
		return 0, false
	}
	d := *c.RequiredAmount - *c.CurrentBalance
	if d <= 0 {
		return 0, false
	}
	return d, true
}
