package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vaultline/session-engine/internal/domain/recovery"
	apperrors "github.com/vaultline/session-engine/internal/errors"
)

// Classifier maps a failure to a recovery classification.
type Classifier interface {
	Classify(err error) recovery.ClassifiedError
}

// RecoveryActions are the caller-supplied follow-ups a recovery modal can offer.
type RecoveryActions struct {
	OnRetry       recovery.Callback
	OnFundAccount recovery.Callback
}

// RecoveryRouterOptions groups dependencies for RecoveryRouter.
type RecoveryRouterOptions struct {
	Classifier Classifier // Optional: defaults to DefaultErrorClassifier()
	Logger     *slog.Logger
}

// RecoveryRouter turns transaction failures into at most one active recovery modal.
// Opening a modal always replaces the previous one.
type RecoveryRouter struct {
	classifier Classifier
	logger     *slog.Logger

	mu      sync.Mutex
	state   recovery.ModalState
	actions RecoveryActions
	epoch   uint64
}

// NewRecoveryRouter constructs a RecoveryRouter with every modal closed.
func NewRecoveryRouter(opts RecoveryRouterOptions) *RecoveryRouter {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = DefaultErrorClassifier()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryRouter{classifier: classifier, logger: logger.With("component", "recovery_router")}
}

// Handle classifies err, closes any open modal and opens the one matching the
// classification. A nil err is ignored.
func (r *RecoveryRouter) Handle(err error, actions RecoveryActions) recovery.ClassifiedError {
	if err == nil {
		return recovery.ClassifiedError{}
	}
	classified := r.classifier.Classify(err)

	next := recovery.ModalState{
		Active:   recovery.ModalFor(classified.Kind),
		Error:    &classified,
		CanRetry: actions.OnRetry != nil,
	}
	if classified.Kind == recovery.KindInsufficientBalance {
		if d, ok := classified.Shortfall(); ok {
			next.Shortfall = &d
		}
		next.CanFundAccount = actions.OnFundAccount != nil
	} else {
		actions.OnFundAccount = nil
	}

	r.mu.Lock()
	r.epoch++
	r.state = next
	r.actions = actions
	r.mu.Unlock()

	r.logger.Info("recovery modal opened",
		"modal", string(next.Active),
		"code", classified.Code,
		"transaction_id", classified.TransactionID,
	)
	return classified
}

// State returns a copy of the current modal state.
func (r *RecoveryRouter) State() recovery.ModalState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneModalState(r.state)
}

// CloseAll closes every recovery modal.
func (r *RecoveryRouter) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

// Dismiss closes the active modal only if it is of the given kind.
func (r *RecoveryRouter) Dismiss(kind recovery.ModalKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Active == recovery.ModalNone || r.state.Active != kind {
		return false
	}
	r.closeLocked()
	return true
}

// Retry runs the retry action of the active modal. On success the modal closes;
// a failing retry is routed through Handle with the same actions unless the
// action already opened a modal for it.
func (r *RecoveryRouter) Retry(ctx context.Context) error {
	return r.run(ctx, func(a RecoveryActions) recovery.Callback { return a.OnRetry }, "retry")
}

// FundAccount runs the fund-account action of an open insufficient-balance modal.
func (r *RecoveryRouter) FundAccount(ctx context.Context) error {
	return r.run(ctx, func(a RecoveryActions) recovery.Callback { return a.OnFundAccount }, "fund account")
}

func (r *RecoveryRouter) run(ctx context.Context, pick func(RecoveryActions) recovery.Callback, name string) error {
	r.mu.Lock()
	actions := r.actions
	epoch := r.epoch
	open := r.state.IsOpen()
	r.mu.Unlock()

	cb := pick(actions)
	if !open || cb == nil {
		return apperrors.Conflict(name + " is not available")
	}

	if err := cb(ctx); err != nil {
		r.logger.WarnContext(ctx, "recovery action failed", "action", name, "error", err)
		r.mu.Lock()
		routed := r.epoch != epoch
		r.mu.Unlock()
		// An action that reports its own failures (a retried mutation does) has
		// already opened the next modal.
		if !routed {
			r.Handle(err, actions)
		}
		return err
	}

	r.mu.Lock()
	if r.epoch == epoch {
		r.closeLocked()
	}
	r.mu.Unlock()
	return nil
}

func (r *RecoveryRouter) closeLocked() {
	r.epoch++
	r.state = recovery.ModalState{}
	r.actions = RecoveryActions{}
}

func cloneModalState(s recovery.ModalState) recovery.ModalState {
	if s.Error != nil {
		e := *s.Error
		s.Error = &e
	}
	if s.Shortfall != nil {
		d := *s.Shortfall
		s.Shortfall = &d
	}
	return s
}
