package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vaultline/session-engine/internal/adapters/devsigner"
	"github.com/vaultline/session-engine/internal/adapters/devverifier"
	"github.com/vaultline/session-engine/internal/adapters/viewcache"
	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/navigation"
	"github.com/vaultline/session-engine/internal/domain/recovery"
	"github.com/vaultline/session-engine/internal/domain/views"
	"github.com/vaultline/session-engine/internal/mocks"
	authmocks "github.com/vaultline/session-engine/internal/mocks/auth"
	"github.com/vaultline/session-engine/internal/ports"
	"github.com/vaultline/session-engine/internal/service"
)

type testEngine struct {
	handler   http.Handler
	transport *mocks.MockTransport
	sessions  *service.SessionStore
	recovery  *service.RecoveryRouter
	verifier  *devverifier.Verifier
	signer    *devsigner.Signer
	cache     *viewcache.Memory
}

func newTestEngine(t *testing.T, verified bool) *testEngine {
	t.Helper()
	verifier, err := devverifier.New(devverifier.Config{
		Identity: domainauth.Identity{
			UserID:            "u1",
			Email:             "ada@example.com",
			Tier:              domainauth.Tier2,
			IdentityVerified:  verified,
			TransactionPINSet: verified,
		},
		Password:    "pw",
		SigningKey:  []byte("test-key"),
		MaxAttempts: 2,
	})
	require.NoError(t, err)

	e := &testEngine{
		transport: mocks.NewMockTransport(gomock.NewController(t)),
		verifier:  verifier,
		signer:    devsigner.New(),
		cache:     viewcache.NewMemory(time.Minute),
		recovery:  service.NewRecoveryRouter(service.RecoveryRouterOptions{}),
	}
	memory := navigation.NewMemory()
	e.sessions = service.NewSessionStore(service.SessionStoreOptions{
		Stores:     service.SessionPersistence{Credentials: authmocks.NewMemoryCredentialStore("")},
		Navigation: memory,
	})
	e.sessions.InitializeAuth(context.Background(), nil)

	viewSvc := service.NewViewService(service.ViewServiceOptions{
		Transport: e.transport,
		Cache:     e.cache,
		Sessions:  e.sessions,
		Identity:  verifier.Accounts(),
	})
	guardOpts := service.GuardOptions{Sessions: e.sessions, Memory: memory}
	e.handler = NewRouter(RouterServices{
		Sessions: service.NewAuthService(service.AuthServiceOptions{
			Passwords: verifier.Accounts(),
			Sessions:  e.sessions,
			Recovery:  e.recovery,
		}),
		Snapshots: e.sessions,
		Biometric: service.NewBiometricService(service.BiometricServiceOptions{
			Verifier: verifier,
			Sessions: e.sessions,
			Signer:   e.signer,
		}),
		Mutations: service.NewMutationService(service.MutationServiceOptions{
			Transport: e.transport,
			Views:     e.cache,
			Hooks:     service.MutationHooks{Sessions: e.sessions, Recovery: e.recovery, Identity: viewSvc},
		}),
		DeviceKeys:  e.signer,
		Recovery:    e.recovery,
		Views:       viewSvc,
		RootGuard:   service.NewRootGuard(guardOpts),
		AreaGuard:   service.NewAreaGuard(guardOpts),
		FundAccount: func(context.Context) error { return nil },
		Compression: &CompressionConfig{},
	})
	return e
}

func (e *testEngine) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEngine) login(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/session/login", map[string]string{"identifier": "ada@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_Health(t *testing.T) {
	e := newTestEngine(t, true)
	rec := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRouter_SessionLifecycle(t *testing.T) {
	e := newTestEngine(t, true)

	rec := e.do(t, http.MethodPost, "/api/session/login", map[string]string{"identifier": "ada@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/session/login", map[string]string{"identifier": "", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.login(t)
	got := decodeBody[sessionResponse](t, e.do(t, http.MethodGet, "/api/session", nil))
	assert.True(t, got.Session.LoggedIn)
	assert.True(t, got.FullyVerified)
	require.NotNil(t, got.Session.Identity)
	assert.Equal(t, "u1", got.Session.Identity.UserID)

	rec = e.do(t, http.MethodPost, "/api/session/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, e.sessions.Snapshot().LoggedIn)
}

func TestRouter_PageGuards(t *testing.T) {
	e := newTestEngine(t, false)

	rec := e.do(t, http.MethodGet, "/user/transfers?tab=bank", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	e.login(t)

	// Logged in on an entry surface: back to where the user was going.
	rec = e.do(t, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/user/transfers?tab=bank", rec.Header().Get("Location"))

	// Not fully verified: confined to the fallback home.
	rec = e.do(t, http.MethodGet, "/user/transfers", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/user/dashboard", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/user/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[pageResponse](t, rec)
	assert.Equal(t, "/user/dashboard", page.Page)
	assert.True(t, page.Session.Session.LoggedIn)
	assert.False(t, page.Session.FullyVerified)

	// Deliberate logout: the area guard holds once instead of redirecting.
	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodPost, "/api/session/logout", nil).Code)
	rec = e.do(t, http.MethodGet, "/user/dashboard", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	rec = e.do(t, http.MethodGet, "/user/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRouter_PagesWaitForInitialization(t *testing.T) {
	sessions := service.NewSessionStore(service.SessionStoreOptions{
		Stores: service.SessionPersistence{Credentials: authmocks.NewMemoryCredentialStore("")},
	})
	guardOpts := service.GuardOptions{Sessions: sessions}
	handler := NewRouter(RouterServices{
		Snapshots: sessions,
		RootGuard: service.NewRootGuard(guardOpts),
		AreaGuard: service.NewAreaGuard(guardOpts),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_BiometricWithDeviceSigner(t *testing.T) {
	e := newTestEngine(t, true)

	rec := e.do(t, http.MethodPost, "/api/biometric/enroll", map[string]string{"device_id": "d1", "public_key": "x", "biometric_type": "faceid"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "enrollment needs a session")

	e.login(t)
	rec = e.do(t, http.MethodGet, "/api/biometric/devices/d1/key", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pub := decodeBody[deviceKeyResponse](t, rec).PublicKey
	require.NotEmpty(t, pub)

	rec = e.do(t, http.MethodPost, "/api/biometric/enroll", map[string]string{"device_id": "d1", "public_key": pub, "biometric_type": "retina"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/biometric/enroll", map[string]string{"device_id": "d1", "public_key": pub, "biometric_type": "faceid", "device_name": "Phone"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodPost, "/api/session/logout", nil).Code)

	rec = e.do(t, http.MethodPost, "/api/biometric/login", map[string]string{"identifier": "ada@example.com", "device_id": "d1", "public_key": pub})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeBody[sessionResponse](t, rec).Session.LoggedIn)

	rec = e.do(t, http.MethodGet, "/api/biometric/devices/d1?identifier=ada@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, true, status["enabled"])
	assert.Equal(t, "authenticated", status["state"])

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/biometric/devices/d1", nil).Code)
}

func TestRouter_BiometricLockout(t *testing.T) {
	e := newTestEngine(t, true)
	e.login(t)
	pub, err := e.signer.PublicKey("d1")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/biometric/enroll",
		map[string]string{"device_id": "d1", "public_key": pub, "biometric_type": "fingerprint"}).Code)

	attempt := func() *httptest.ResponseRecorder {
		rec := e.do(t, http.MethodPost, "/api/biometric/challenge", map[string]string{"identifier": "ada@example.com", "device_id": "d1"})
		if rec.Code != http.StatusOK {
			return rec
		}
		ch := decodeBody[challengeResponse](t, rec)
		return e.do(t, http.MethodPost, "/api/biometric/login", map[string]string{
			"identifier": "ada@example.com", "device_id": "d1", "challenge": ch.Challenge, "signature": "AAAA",
		})
	}

	first := attempt()
	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, 1, decodeBody[biometricErrorBody](t, first).FailedAttempts)

	second := attempt()
	assert.Equal(t, http.StatusLocked, second.Code)
	body := decodeBody[biometricErrorBody](t, second)
	assert.Equal(t, "biometric_locked", body.Error)
	assert.NotNil(t, body.LockedUntil)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// Locked locally: refused before a challenge is issued.
	third := attempt()
	assert.Equal(t, http.StatusLocked, third.Code)
}

func TestRouter_ChallengeReuse(t *testing.T) {
	e := newTestEngine(t, true)
	e.login(t)
	pub, err := e.signer.PublicKey("d1")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/biometric/enroll",
		map[string]string{"device_id": "d1", "public_key": pub, "biometric_type": "fingerprint"}).Code)

	ch := decodeBody[challengeResponse](t, e.do(t, http.MethodPost, "/api/biometric/challenge",
		map[string]string{"identifier": "ada@example.com", "device_id": "d1"}))
	sig, err := e.signer.Sign(context.Background(), "d1", ch.Challenge)
	require.NoError(t, err)
	login := map[string]string{"identifier": "ada@example.com", "device_id": "d1", "challenge": ch.Challenge, "signature": sig}

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/biometric/login", login).Code)
	rec := e.do(t, http.MethodPost, "/api/biometric/login", login)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "challenge_invalid", decodeBody[biometricErrorBody](t, rec).Error)
}

func TestRouter_TransferInvalidatesViews(t *testing.T) {
	e := newTestEngine(t, true)
	e.login(t)
	ctx := context.Background()
	for _, v := range []views.View{views.Wallet, views.Transactions, views.Beneficiaries} {
		require.NoError(t, e.cache.Set(ctx, views.Key(v, "u1"), "", []byte(`{}`)))
	}

	e.transport.EXPECT().Call(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.Request) (*ports.Response, error) {
			assert.Equal(t, "/transfers", req.Path)
			return &ports.Response{Status: http.StatusOK, Body: []byte(`{"reference":"T1"}`)}, nil
		})

	rec := e.do(t, http.MethodPost, "/api/transfers", service.TransferInput{AccountNumber: "0123456789", BankCode: "058", Amount: 2500, PIN: "1234"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[mutationResponse](t, rec)
	assert.JSONEq(t, `{"reference":"T1"}`, string(got.Result))
	for v, stale := range map[views.View]bool{views.Wallet: true, views.Transactions: true, views.Beneficiaries: false} {
		_, ok, err := e.cache.Get(ctx, views.Key(v, "u1"), "")
		require.NoError(t, err)
		assert.Equal(t, !stale, ok, string(v))
	}
}

func TestRouter_FailedTransferOpensModalAndRetries(t *testing.T) {
	e := newTestEngine(t, true)
	e.login(t)

	gomock.InOrder(
		e.transport.EXPECT().Call(gomock.Any(), gomock.Any()).Return(nil, &recovery.Failure{
			Message: "Your balance is 1,000.00, required 5,000.00",
			Status:  http.StatusBadRequest,
		}),
		e.transport.EXPECT().Call(gomock.Any(), gomock.Any()).Return(&ports.Response{Status: http.StatusOK, Body: []byte(`{}`)}, nil),
	)

	rec := e.do(t, http.MethodPost, "/api/transfers", service.TransferInput{AccountNumber: "0123456789", BankCode: "058", Amount: 5000, PIN: "1234"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	failed := decodeBody[transactionFailedResponse](t, rec)
	assert.Equal(t, recovery.ModalInsufficientBalance, failed.Recovery.Active)
	assert.True(t, failed.Recovery.CanRetry)
	assert.True(t, failed.Recovery.CanFundAccount)
	require.NotNil(t, failed.Recovery.Shortfall)
	assert.InDelta(t, 4000.0, *failed.Recovery.Shortfall, 0.001)

	state := decodeBody[recovery.ModalState](t, e.do(t, http.MethodGet, "/api/recovery", nil))
	assert.Equal(t, recovery.ModalInsufficientBalance, state.Active)

	rec = e.do(t, http.MethodPost, "/api/recovery/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decodeBody[recovery.ModalState](t, rec).IsOpen())

	// Nothing left to retry.
	rec = e.do(t, http.MethodPost, "/api/recovery/retry", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_RecoveryClose(t *testing.T) {
	e := newTestEngine(t, true)
	e.recovery.Handle(&recovery.Failure{Message: "Invalid PIN", Code: "INVALID_PIN"}, service.RecoveryActions{})

	rec := e.do(t, http.MethodPost, "/api/recovery/close", map[string]string{"kind": string(recovery.ModalGenericFailure)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, recovery.ModalInvalidCredential, decodeBody[recovery.ModalState](t, rec).Active)

	rec = e.do(t, http.MethodPost, "/api/recovery/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[recovery.ModalState](t, rec).IsOpen())
}

func TestRouter_VerificationRefreshesIdentity(t *testing.T) {
	e := newTestEngine(t, false)
	e.login(t)
	require.False(t, e.sessions.Snapshot().IsFullyVerified())

	e.transport.EXPECT().Call(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.Request) (*ports.Response, error) {
			assert.Equal(t, "/verification/bvn", req.Path)
			id, err := e.verifier.Accounts().Me(context.Background())
			require.NoError(t, err)
			id.IdentityVerified, id.TransactionPINSet = true, true
			e.verifier.SetIdentity(id)
			return &ports.Response{Status: http.StatusOK}, nil
		})

	rec := e.do(t, http.MethodPost, "/api/verification/bvn", map[string]string{"bvn": "12345678901"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, e.sessions.Snapshot().IsFullyVerified())
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/user/transfers", nil).Code)
}

func TestRouter_MutationValidationAndAuth(t *testing.T) {
	e := newTestEngine(t, true)

	rec := e.do(t, http.MethodPost, "/api/transfers", service.TransferInput{AccountNumber: "1", BankCode: "058", Amount: 1, PIN: "1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	e.login(t)
	rec = e.do(t, http.MethodPost, "/api/verification/pin", map[string]string{"pin": "1234", "confirm_pin": "4321"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "confirm_pin", decodeBody[map[string]string](t, rec)["field"])

	rec = e.do(t, http.MethodPost, "/api/transfers", map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Views(t *testing.T) {
	e := newTestEngine(t, true)
	e.login(t)

	e.transport.EXPECT().Call(gomock.Any(), ports.Request{Method: http.MethodGet, Path: "/transactions?page=2"}).
		Return(&ports.Response{Status: http.StatusOK, Body: []byte(`[{"id":"t1"}]`)}, nil)

	rec := e.do(t, http.MethodGet, "/api/views/transactions?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"t1"}]`, rec.Body.String())

	// Served from cache the second time.
	rec = e.do(t, http.MethodGet, "/api/views/transactions?page=2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/views/loans", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
