package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vaultline/session-engine/internal/domain/recovery"
	"github.com/vaultline/session-engine/internal/ports"
	"github.com/vaultline/session-engine/internal/service"
)

// MutationAPI is the money-movement and verification surface of the engine.
type MutationAPI interface {
	Transfer(ctx context.Context, in service.TransferInput, actions service.RecoveryActions) (*ports.Response, error)
	PayBill(ctx context.Context, in service.BillPaymentInput, actions service.RecoveryActions) (*ports.Response, error)
	FundSavings(ctx context.Context, in service.SavingsInput, actions service.RecoveryActions) (*ports.Response, error)
	Invest(ctx context.Context, in service.InvestmentInput, actions service.RecoveryActions) (*ports.Response, error)
	AddBeneficiary(ctx context.Context, in service.BeneficiaryInput, actions service.RecoveryActions) (*ports.Response, error)
	VerifyBVN(ctx context.Context, bvn string, actions service.RecoveryActions) (*ports.Response, error)
	CreatePIN(ctx context.Context, pin, confirm string, actions service.RecoveryActions) (*ports.Response, error)
}

// MutationHandlers serves the mutation endpoints. A failed mutation opens a
// recovery modal whose retry re-submits the same input.
type MutationHandlers struct {
	Svc      MutationAPI
	Recovery RecoveryAPI
	// FundAccount backs the insufficient-balance modal's call to action. Optional.
	FundAccount recovery.Callback
	Logger      *slog.Logger
}

type mutationResponse struct {
	Status  int             `json:"status"`
	Result  json.RawMessage `json:"result"`
	Warning string          `json:"warning,omitempty"`
}

type transactionFailedResponse struct {
	Error    string              `json:"error"`
	Message  string              `json:"message"`
	Recovery recovery.ModalState `json:"recovery"`
}

type bvnRequest struct {
	BVN string `json:"bvn"`
}

type pinRequest struct {
	PIN     string `json:"pin"`
	Confirm string `json:"confirm_pin"`
}

// serveMutation decodes T, runs call and writes the outcome.
func serveMutation[T any](h *MutationHandlers, w http.ResponseWriter, r *http.Request, call func(context.Context, T, service.RecoveryActions) (*ports.Response, error)) {
	var in T
	if !DecodeJSON(w, r, &in) {
		return
	}

	var actions service.RecoveryActions
	actions.OnRetry = func(ctx context.Context) error {
		resp, err := call(ctx, in, actions)
		if resp != nil && errors.Is(err, service.ErrInvalidation) {
			return nil
		}
		return err
	}
	actions.OnFundAccount = h.FundAccount

	resp, err := call(r.Context(), in, actions)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, newMutationResponse(resp, ""))
	case resp != nil && errors.Is(err, service.ErrInvalidation):
		h.logger().WarnContext(r.Context(), "mutation succeeded with stale views", "path", r.URL.Path, "error", err)
		WriteJSON(w, http.StatusOK, newMutationResponse(resp, err.Error()))
	default:
		var failure *recovery.Failure
		if errors.As(err, &failure) && h.Recovery != nil {
			WriteJSON(w, http.StatusUnprocessableEntity, transactionFailedResponse{
				Error:    "transaction_failed",
				Message:  failure.Error(),
				Recovery: h.Recovery.State(),
			})
			return
		}
		WriteServiceError(w, r, h.Logger, err)
	}
}

func newMutationResponse(resp *ports.Response, warning string) mutationResponse {
	out := mutationResponse{Result: json.RawMessage("null"), Warning: warning}
	if resp != nil {
		out.Status = resp.Status
		if json.Valid(resp.Body) {
			out.Result = resp.Body
		}
	}
	return out
}

func (h *MutationHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Transfer handles POST /api/transfers.
func (h *MutationHandlers) Transfer(w http.ResponseWriter, r *http.Request) {
	serveMutation(h, w, r, h.Svc.Transfer)
}

// PayBill handles POST /api/bills.
func (h *MutationHandlers) PayBill(w http.ResponseWriter, r *http.Request) {
	serveMutation(h, w, r, h.Svc.PayBill)
}

// FundSavings handles POST /api/savings.
func (h *MutationHandlers) FundSavings(w http.ResponseWriter, r *http.Request) {
	serveMutation(h, w, r, h.Svc.FundSavings)
}

// Invest handles POST /api/investments.
func (h *MutationHandlers) Invest(w http.ResponseWriter, r *http.Request) {
	serveMutation(h, w, r, h.Svc.Invest)
}

// AddBeneficiary handles POST /api/beneficiaries.
func (h *MutationHandlers) AddBeneficiary(w http.ResponseWriter, r *http.Request) {
	serveMutation(h, w, r, h.Svc.AddBeneficiary)
}

// VerifyBVN handles POST /api/verification/bvn.
func (h *MutationHandlers) VerifyBVN(w http.ResponseWriter, r *http.Request) {
	serveMutation(h, w, r, func(ctx context.Context, in bvnRequest, actions service.RecoveryActions) (*ports.Response, error) {
		return h.Svc.VerifyBVN(ctx, in.BVN, actions)
	})
}

// CreatePIN handles POST /api/verification/pin.
func (h *MutationHandlers) CreatePIN(w http.ResponseWriter, r *http.Request) {
	serveMutation(h, w, r, func(ctx context.Context, in pinRequest, actions service.RecoveryActions) (*ports.Response, error) {
		return h.Svc.CreatePIN(ctx, in.PIN, in.Confirm, actions)
	})
}
