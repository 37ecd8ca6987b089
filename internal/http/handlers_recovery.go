package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vaultline/session-engine/internal/domain/recovery"
)

// RecoveryAPI is the recovery modal surface of the engine.
type RecoveryAPI interface {
	State() recovery.ModalState
	CloseAll()
	Dismiss(kind recovery.ModalKind) bool
	Retry(ctx context.Context) error
	FundAccount(ctx context.Context) error
}

// RecoveryHandlers serves /api/recovery.
type RecoveryHandlers struct {
	Svc    RecoveryAPI
	Logger *slog.Logger
}

type dismissRequest struct {
	Kind recovery.ModalKind `json:"kind"`
}

// State handles GET /api/recovery.
func (h *RecoveryHandlers) State(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.State())
}

// Close handles POST /api/recovery/close. With a body naming a kind only that
// modal is dismissed.
func (h *RecoveryHandlers) Close(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 {
		var req dismissRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		if req.Kind != recovery.ModalNone {
			h.Svc.Dismiss(req.Kind)
			WriteJSON(w, http.StatusOK, h.Svc.State())
			return
		}
	}
	h.Svc.CloseAll()
	WriteJSON(w, http.StatusOK, h.Svc.State())
}

// Retry handles POST /api/recovery/retry.
func (h *RecoveryHandlers) Retry(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Svc.Retry)
}

// FundAccount handles POST /api/recovery/fund.
func (h *RecoveryHandlers) FundAccount(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Svc.FundAccount)
}

// run answers with the modal state; a failing action has already re-opened the
// matching modal, so that is reported as 422 rather than an error.
func (h *RecoveryHandlers) run(w http.ResponseWriter, r *http.Request, action func(context.Context) error) {
	err := action(r.Context())
	var failure *recovery.Failure
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, h.Svc.State())
	case errors.As(err, &failure):
		WriteJSON(w, http.StatusUnprocessableEntity, transactionFailedResponse{
			Error:    "transaction_failed",
			Message:  failure.Error(),
			Recovery: h.Svc.State(),
		})
	default:
		WriteServiceError(w, r, h.Logger, err)
	}
}
