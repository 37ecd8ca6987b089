package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/recovery"
	"github.com/vaultline/session-engine/internal/domain/views"
	apperrors "github.com/vaultline/session-engine/internal/errors"
	"github.com/vaultline/session-engine/internal/ports"
)

// ErrInvalidation marks a mutation that succeeded but left one or more read-views
// uninvalidated.
var ErrInvalidation = errors.New("view invalidation failed")

// Mutation is one state-changing backend call and the read-views it affects.
type Mutation struct {
	Name    string
	Kind    views.MutationKind
	Request ports.Request
}

// SessionChecker is the slice of SessionStore mutations need.
type SessionChecker interface {
	Snapshot() domainauth.Session
	CheckToken(ctx context.Context) bool
}

// FailureHandler routes a failed mutation to the recovery UI.
type FailureHandler interface {
	Handle(err error, actions RecoveryActions) recovery.ClassifiedError
}

// IdentityRefresher reloads the session identity after verification changes.
type IdentityRefresher interface {
	RefreshIdentity(ctx context.Context) error
}

// MutationHooks are the collaborators a mutation reports to.
type MutationHooks struct {
	Sessions SessionChecker    // Required
	Recovery FailureHandler    // Optional
	Identity IdentityRefresher // Optional
}

// MutationServiceOptions groups dependencies for MutationService.
type MutationServiceOptions struct {
	Transport ports.Transport
	Views     ports.ViewInvalidator
	Hooks     MutationHooks
	Logger    *slog.Logger
}

// MutationService runs money-movement and verification calls. On success it
// invalidates the affected read-views before returning; on failure it hands the
// error to recovery and returns it.
type MutationService struct {
	transport ports.Transport
	views     ports.ViewInvalidator
	hooks     MutationHooks
	logger    *slog.Logger
}

// NewMutationService constructs a MutationService.
func NewMutationService(opts MutationServiceOptions) *MutationService {
	if opts.Transport == nil {
		panic("Transport is required")
	}
	if opts.Views == nil {
		panic("ViewInvalidator is required")
	}
	if opts.Hooks.Sessions == nil {
		panic("SessionChecker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MutationService{
		transport: opts.Transport,
		views:     opts.Views,
		hooks:     opts.Hooks,
		logger:    logger.With("component", "mutations"),
	}
}

// Execute performs m. The invalidation keys are bound to the user who issued the
// call. When invalidation partly fails the response is still returned together with
// an ErrInvalidation error.
func (s *MutationService) Execute(ctx context.Context, m Mutation, actions RecoveryActions) (*ports.Response, error) {
	session := s.hooks.Sessions.Snapshot()
	if !session.LoggedIn || session.Identity == nil {
		return nil, apperrors.Unauthorized("login required")
	}
	userKey := session.Identity.Key()

	resp, err := s.transport.Call(ctx, m.Request)
	if err != nil {
		return nil, s.fail(ctx, m, err, actions)
	}

	invErr := s.invalidate(ctx, m.Kind, userKey)
	if m.Kind == views.MutationIdentity && s.hooks.Identity != nil {
		if refreshErr := s.hooks.Identity.RefreshIdentity(ctx); refreshErr != nil {
			s.logger.WarnContext(ctx, "refresh identity after mutation failed", "mutation", m.Name, "error", refreshErr)
		}
	}
	s.logger.InfoContext(ctx, "mutation succeeded", "mutation", m.Name, "kind", string(m.Kind))
	return resp, invErr
}

func (s *MutationService) fail(ctx context.Context, m Mutation, err error, actions RecoveryActions) error {
	// A 401 ends the session only when the credential really is gone; otherwise it
	// is a rejected PIN or password and goes to recovery like any other failure.
	var f *recovery.Failure
	if errors.As(err, &f) && f.Status == http.StatusUnauthorized && !s.hooks.Sessions.CheckToken(ctx) {
		return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, m.Name+": session rejected")
	}

	s.logger.WarnContext(ctx, "mutation failed", "mutation", m.Name, "error", err)
	if s.hooks.Recovery != nil {
		s.hooks.Recovery.Handle(err, actions)
	}
	return fmt.Errorf("%s: %w", m.Name, err)
}

// invalidate drops every planned key in order, continuing past failures.
func (s *MutationService) invalidate(ctx context.Context, kind views.MutationKind, userKey string) error {
	var errs []error
	for _, key := range views.Plan(kind, userKey) {
		if err := s.views.Invalidate(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "invalidate view failed", "view", string(key), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidation, errors.Join(errs...))
}

// TransferInput is a funds transfer to a bank account.
type TransferInput struct {
	AccountNumber   string  `json:"account_number"`
	BankCode        string  `json:"bank_code"`
	AccountName     string  `json:"account_name,omitempty"`
	Amount          float64 `json:"amount"`
	Narration       string  `json:"narration,omitempty"`
	PIN             string  `json:"pin"`
	SaveBeneficiary bool    `json:"save_beneficiary,omitempty"`
}

// Validate checks required transfer fields.
func (in TransferInput) Validate() error {
	if in.AccountNumber == "" {
		return apperrors.ValidationField("account_number", "account number is required")
	}
	if in.BankCode == "" {
		return apperrors.ValidationField("bank_code", "bank code is required")
	}
	return validateAmountAndPIN(in.Amount, in.PIN)
}

// BillPaymentInput pays a biller.
type BillPaymentInput struct {
	BillerCode string  `json:"biller_code"`
	CustomerID string  `json:"customer_id"`
	Amount     float64 `json:"amount"`
	PIN        string  `json:"pin"`
}

// SavingsInput moves funds into a savings plan.
type SavingsInput struct {
	PlanID string  `json:"plan_id"`
	Amount float64 `json:"amount"`
	PIN    string  `json:"pin"`
}

// InvestmentInput buys into an investment product.
type InvestmentInput struct {
	ProductID string  `json:"product_id"`
	Amount    float64 `json:"amount"`
	PIN       string  `json:"pin"`
}

// BeneficiaryInput saves a transfer beneficiary.
type BeneficiaryInput struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
	Nickname      string `json:"nickname,omitempty"`
}

func validateAmountAndPIN(amount float64, pin string) error {
	if amount <= 0 {
		return apperrors.ValidationField("amount", "amount must be positive")
	}
	if pin == "" {
		return apperrors.ValidationField("pin", "transaction pin is required")
	}
	return nil
}

// Transfer sends money. Saving the beneficiary widens the invalidation set.
func (s *MutationService) Transfer(ctx context.Context, in TransferInput, actions RecoveryActions) (*ports.Response, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	kind := views.MutationBalance
	if in.SaveBeneficiary {
		kind = views.MutationBeneficiary
	}
	return s.Execute(ctx, Mutation{
		Name:    "transfer",
		Kind:    kind,
		Request: ports.Request{Method: http.MethodPost, Path: "/transfers", Body: in},
	}, actions)
}

// PayBill pays a biller from the wallet.
func (s *MutationService) PayBill(ctx context.Context, in BillPaymentInput, actions RecoveryActions) (*ports.Response, error) {
	if in.BillerCode == "" || in.CustomerID == "" {
		return nil, apperrors.Validation("biller code and customer id are required")
	}
	if err := validateAmountAndPIN(in.Amount, in.PIN); err != nil {
		return nil, err
	}
	return s.Execute(ctx, Mutation{
		Name:    "pay bill",
		Kind:    views.MutationBalance,
		Request: ports.Request{Method: http.MethodPost, Path: "/bills/pay", Body: in},
	}, actions)
}

// FundSavings moves wallet funds into a savings plan.
func (s *MutationService) FundSavings(ctx context.Context, in SavingsInput, actions RecoveryActions) (*ports.Response, error) {
	if in.PlanID == "" {
		return nil, apperrors.ValidationField("plan_id", "plan id is required")
	}
	if err := validateAmountAndPIN(in.Amount, in.PIN); err != nil {
		return nil, err
	}
	return s.Execute(ctx, Mutation{
		Name:    "fund savings",
		Kind:    views.MutationBalance,
		Request: ports.Request{Method: http.MethodPost, Path: "/savings/" + in.PlanID + "/fund", Body: in},
	}, actions)
}

// Invest buys into an investment product.
func (s *MutationService) Invest(ctx context.Context, in InvestmentInput, actions RecoveryActions) (*ports.Response, error) {
	if in.ProductID == "" {
		return nil, apperrors.ValidationField("product_id", "product id is required")
	}
	if err := validateAmountAndPIN(in.Amount, in.PIN); err != nil {
		return nil, err
	}
	return s.Execute(ctx, Mutation{
		Name:    "invest",
		Kind:    views.MutationBalance,
		Request: ports.Request{Method: http.MethodPost, Path: "/investments", Body: in},
	}, actions)
}

// AddBeneficiary saves a beneficiary without moving money.
func (s *MutationService) AddBeneficiary(ctx context.Context, in BeneficiaryInput, actions RecoveryActions) (*ports.Response, error) {
	if in.AccountNumber == "" || in.BankCode == "" {
		return nil, apperrors.Validation("account number and bank code are required")
	}
	return s.Execute(ctx, Mutation{
		Name:    "add beneficiary",
		Kind:    views.MutationBeneficiary,
		Request: ports.Request{Method: http.MethodPost, Path: "/beneficiaries", Body: in},
	}, actions)
}

// VerifyBVN submits the bank verification number.
func (s *MutationService) VerifyBVN(ctx context.Context, bvn string, actions RecoveryActions) (*ports.Response, error) {
	if len(bvn) != 11 {
		return nil, apperrors.ValidationField("bvn", "bvn must be 11 digits")
	}
	for _, r := range bvn {
		if r < '0' || r > '9' {
			return nil, apperrors.ValidationField("bvn", "bvn must be 11 digits")
		}
	}
	return s.Execute(ctx, Mutation{
		Name:    "verify bvn",
		Kind:    views.MutationIdentity,
		Request: ports.Request{Method: http.MethodPost, Path: "/verification/bvn", Body: map[string]string{"bvn": bvn}},
	}, actions)
}

// CreatePIN sets the transaction PIN.
func (s *MutationService) CreatePIN(ctx context.Context, pin, confirm string, actions RecoveryActions) (*ports.Response, error) {
	if len(pin) != 4 {
		return nil, apperrors.ValidationField("pin", "pin must be 4 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return nil, apperrors.ValidationField("pin", "pin must be 4 digits")
		}
	}
	if pin != confirm {
		return nil, apperrors.ValidationField("confirm_pin", "pins do not match")
	}
	return s.Execute(ctx, Mutation{
		Name:    "create pin",
		Kind:    views.MutationIdentity,
		Request: ports.Request{Method: http.MethodPost, Path: "/users/pin", Body: map[string]string{"pin": pin}},
	}, actions)
}
