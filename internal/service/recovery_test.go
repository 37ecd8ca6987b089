package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/session-engine/internal/domain/recovery"
	apperrors "github.com/vaultline/session-engine/internal/errors"
)

func TestRecoveryRouter_SingleActiveModal(t *testing.T) {
	r := NewRecoveryRouter(RecoveryRouterOptions{})

	r.Handle(&recovery.Failure{Message: "Insufficient funds"}, RecoveryActions{})
	assert.Equal(t, recovery.ModalInsufficientBalance, r.State().Active)

	r.Handle(&recovery.Failure{Message: "Invalid PIN"}, RecoveryActions{})

	state := r.State()
	assert.Equal(t, recovery.ModalInvalidCredential, state.Active)
	require.NotNil(t, state.Error)
	assert.Equal(t, recovery.KindInvalidCredential, state.Error.Kind)
	assert.Nil(t, state.Shortfall)
}

func TestRecoveryRouter_InsufficientBalanceState(t *testing.T) {
	r := NewRecoveryRouter(RecoveryRouterOptions{})
	fund := func(context.Context) error { return nil }

	got := r.Handle(&recovery.Failure{Message: "Your balance is 1,000.00, required 5,000.00"}, RecoveryActions{OnFundAccount: fund})

	assert.Equal(t, recovery.KindInsufficientBalance, got.Kind)
	state := r.State()
	assert.True(t, state.IsOpen())
	assert.True(t, state.CanFundAccount)
	assert.False(t, state.CanRetry)
	require.NotNil(t, state.Shortfall)
	assert.InDelta(t, 4000, *state.Shortfall, 0.0001)
}

func TestRecoveryRouter_NilErrorIgnored(t *testing.T) {
	r := NewRecoveryRouter(RecoveryRouterOptions{})
	r.Handle(nil, RecoveryActions{})
	assert.False(t, r.State().IsOpen())
}

func TestRecoveryRouter_CloseAllAndDismiss(t *testing.T) {
	r := NewRecoveryRouter(RecoveryRouterOptions{})

	r.Handle(errors.New("gateway timeout"), RecoveryActions{})
	assert.False(t, r.Dismiss(recovery.ModalInvalidCredential))
	assert.True(t, r.State().IsOpen())
	assert.True(t, r.Dismiss(recovery.ModalGenericFailure))
	assert.False(t, r.State().IsOpen())

	r.Handle(errors.New("gateway timeout"), RecoveryActions{})
	r.CloseAll()
	assert.Equal(t, recovery.ModalState{}, r.State())
}

func TestRecoveryRouter_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("success closes modal", func(t *testing.T) {
		r := NewRecoveryRouter(RecoveryRouterOptions{})
		calls := 0
		r.Handle(&recovery.Failure{Message: "Invalid PIN"}, RecoveryActions{OnRetry: func(context.Context) error {
			calls++
			return nil
		}})

		require.NoError(t, r.Retry(ctx))
		assert.Equal(t, 1, calls)
		assert.False(t, r.State().IsOpen())
	})

	t.Run("failure reroutes", func(t *testing.T) {
		r := NewRecoveryRouter(RecoveryRouterOptions{})
		retryErr := &recovery.Failure{Message: "Insufficient balance"}
		r.Handle(&recovery.Failure{Message: "Invalid PIN"}, RecoveryActions{OnRetry: func(context.Context) error {
			return retryErr
		}})

		err := r.Retry(ctx)

		require.ErrorIs(t, err, retryErr)
		state := r.State()
		assert.Equal(t, recovery.ModalInsufficientBalance, state.Active)
		assert.True(t, state.CanRetry)
	})

	t.Run("action that routes its own failure is classified once", func(t *testing.T) {
		classifier := &countingClassifier{}
		r := NewRecoveryRouter(RecoveryRouterOptions{Classifier: classifier})
		var actions RecoveryActions
		retryErr := &recovery.Failure{Message: "Insufficient balance"}
		actions.OnRetry = func(context.Context) error {
			r.Handle(retryErr, actions)
			return retryErr
		}
		r.Handle(&recovery.Failure{Message: "Invalid PIN"}, actions)

		err := r.Retry(ctx)

		require.ErrorIs(t, err, retryErr)
		assert.Equal(t, 2, classifier.calls)
		state := r.State()
		assert.Equal(t, recovery.ModalInsufficientBalance, state.Active)
		assert.True(t, state.CanRetry)
	})

	t.Run("unavailable without action", func(t *testing.T) {
		r := NewRecoveryRouter(RecoveryRouterOptions{})
		r.Handle(errors.New("boom"), RecoveryActions{})

		err := r.Retry(ctx)

		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("unavailable when closed", func(t *testing.T) {
		r := NewRecoveryRouter(RecoveryRouterOptions{})
		assert.True(t, apperrors.IsConflict(r.Retry(ctx)))
	})
}

func TestRecoveryRouter_FundAccountOnlyForBalance(t *testing.T) {
	ctx := context.Background()
	r := NewRecoveryRouter(RecoveryRouterOptions{})
	funded := false
	fund := func(context.Context) error {
		funded = true
		return nil
	}

	r.Handle(&recovery.Failure{Message: "Invalid PIN"}, RecoveryActions{OnFundAccount: fund})
	assert.False(t, r.State().CanFundAccount)
	assert.True(t, apperrors.IsConflict(r.FundAccount(ctx)))
	assert.False(t, funded)

	r.Handle(&recovery.Failure{Message: "Insufficient funds"}, RecoveryActions{OnFundAccount: fund})
	require.NoError(t, r.FundAccount(ctx))
	assert.True(t, funded)
	assert.False(t, r.State().IsOpen())
}

type countingClassifier struct{ calls int }

func (c *countingClassifier) Classify(err error) recovery.ClassifiedError {
	c.calls++
	return DefaultErrorClassifier().Classify(err)
}

type stubClassifier struct{ kind recovery.Kind }

func (s stubClassifier) Classify(err error) recovery.ClassifiedError {
	return recovery.ClassifiedError{Kind: s.kind, Message: err.Error()}
}

func TestRecoveryRouter_CustomClassifier(t *testing.T) {
	r := NewRecoveryRouter(RecoveryRouterOptions{Classifier: stubClassifier{kind: recovery.KindInvalidCredential}})
	r.Handle(errors.New("anything"), RecoveryActions{})
	assert.Equal(t, recovery.ModalInvalidCredential, r.State().Active)
}
