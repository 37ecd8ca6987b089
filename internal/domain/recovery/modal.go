package recovery

import "context"

// ModalKind names a recovery modal variant. ModalNone means nothing is shown.
type ModalKind string

const (
	ModalNone                ModalKind = ""
	ModalInsufficientBalance ModalKind = "insufficient_balance"
	ModalInvalidCredential   ModalKind = "invalid_credential"
	ModalGenericFailure      ModalKind = "generic_failure"
)

// ModalFor maps a classification kind to its modal.
func ModalFor(k Kind) ModalKind {
	switch k {
	case KindInsufficientBalance:
		return ModalInsufficientBalance
	case KindInvalidCredential:
		return ModalInvalidCredential
	default:
		return ModalGenericFailure
	}
}

// Callback is a user-initiated continuation captured when a modal opens.
type Callback func(ctx context.Context) error

// ModalState is the snapshot of the recovery UI. At most one variant is active.
type ModalState struct {
	Active ModalKind        `json:"active"`
	Error  *ClassifiedError `json:"error,omitempty"`

	// Shortfall is set for the insufficient-balance modal when both figures are known.
	Shortfall *float64 `json:"shortfall,omitempty"`

	CanRetry       bool `json:"can_retry"`
	CanFundAccount bool `json:"can_fund_account"`
}

// IsOpen reports whether any modal is active.
func (m ModalState) IsOpen() bool { return m.Active != ModalNone }
