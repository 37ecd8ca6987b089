package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/biometric"
	apperrors "github.com/vaultline/session-engine/internal/errors"
	"github.com/vaultline/session-engine/internal/ports"
)

const (
	defaultChallengeTTL = 60 * time.Second
	defaultSpentTTL     = 10 * time.Minute
)

// LoginCompleter is the slice of SessionStore the biometric flow needs.
type LoginCompleter interface {
	CompleteLogin(ctx context.Context, token string, identity domainauth.Identity) (domainauth.Session, error)
	Snapshot() domainauth.Session
}

// BiometricConfig tunes challenge bookkeeping.
type BiometricConfig struct {
	// ChallengeTTL applies when the verifier does not state an expiry.
	ChallengeTTL time.Duration
	// SpentTTL is how long used challenges are remembered so reuse can be named.
	SpentTTL time.Duration
	Now      func() time.Time
}

// BiometricServiceOptions groups dependencies for BiometricService.
type BiometricServiceOptions struct {
	Verifier ports.BiometricVerifier // Required
	Sessions LoginCompleter          // Required
	Signer   ports.DeviceSigner      // Optional: enables LoginWithDevice
	Config   BiometricConfig
	Logger   *slog.Logger
}

type deviceRecord struct {
	enrollment    biometric.Enrollment
	enrolled      bool
	authenticated bool
}

// BiometricService drives device enrollment and challenge-response login. It holds
// at most one outstanding challenge per identifier and device, discards it on first
// use and refuses to contact the verifier while a device is locked out. The lockout
// threshold is owned by the verifier.
type BiometricService struct {
	verifier ports.BiometricVerifier
	sessions LoginCompleter
	signer   ports.DeviceSigner
	logger   *slog.Logger
	now      func() time.Time
	ttl      time.Duration

	mu         sync.Mutex
	challenges *ttlcache.Cache[string, string]
	spent      *ttlcache.Cache[string, struct{}]
	devices    map[string]*deviceRecord
}

// NewBiometricService constructs a BiometricService.
func NewBiometricService(opts BiometricServiceOptions) *BiometricService {
	if opts.Verifier == nil {
		panic("BiometricVerifier is required")
	}
	if opts.Sessions == nil {
		panic("LoginCompleter is required")
	}
	cfg := opts.Config
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = defaultChallengeTTL
	}
	if cfg.SpentTTL <= 0 {
		cfg.SpentTTL = defaultSpentTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BiometricService{
		verifier: opts.Verifier,
		sessions: opts.Sessions,
		signer:   opts.Signer,
		logger:   logger.With("component", "biometric"),
		now:      cfg.Now,
		ttl:      cfg.ChallengeTTL,
		challenges: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
		spent: ttlcache.New(
			ttlcache.WithTTL[string, struct{}](cfg.SpentTTL),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
		devices: make(map[string]*deviceRecord),
	}
}

func challengeKey(identifier, deviceID string) string {
	return strings.ToLower(strings.TrimSpace(identifier)) + "|" + deviceID
}

// Enroll registers a device public key for the logged-in user.
func (s *BiometricService) Enroll(ctx context.Context, in biometric.EnrollInput) (biometric.Enrollment, error) {
	if in.DeviceID == "" {
		return biometric.Enrollment{}, apperrors.ValidationField("device_id", "device id is required")
	}
	if in.PublicKey == "" {
		return biometric.Enrollment{}, apperrors.ValidationField("public_key", "public key is required")
	}
	if _, err := biometric.ParseType(string(in.Type)); err != nil {
		return biometric.Enrollment{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid biometric type")
	}
	if !s.sessions.Snapshot().LoggedIn {
		return biometric.Enrollment{}, apperrors.Unauthorized("login required to enroll a device")
	}

	enrollment, err := s.verifier.Enroll(ctx, in)
	if err != nil {
		return biometric.Enrollment{}, fmt.Errorf("enroll device: %w", err)
	}

	// A fresh enrollment starts unlocked whatever counters the verifier echoes.
	enrollment.Reset()
	s.mu.Lock()
	s.devices[in.DeviceID] = &deviceRecord{enrollment: enrollment, enrolled: true}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "device enrolled", "device_id", in.DeviceID, "type", string(enrollment.Type))
	return enrollment, nil
}

// RequestChallenge asks the verifier for a single-use challenge and holds it until
// it is used or expires. A locked device is refused without contacting the verifier.
func (s *BiometricService) RequestChallenge(ctx context.Context, identifier, deviceID string) (biometric.Challenge, error) {
	if strings.TrimSpace(identifier) == "" {
		return biometric.Challenge{}, apperrors.ValidationField("identifier", "identifier is required")
	}
	if deviceID == "" {
		return biometric.Challenge{}, apperrors.ValidationField("device_id", "device id is required")
	}
	if err := s.lockoutError(deviceID); err != nil {
		return biometric.Challenge{}, err
	}

	ch, err := s.verifier.RequestChallenge(ctx, identifier, deviceID)
	if err != nil {
		var rej *biometric.Rejection
		if errors.As(err, &rej) {
			if lockErr := s.applyRejection(deviceID, rej, false); lockErr.LockedUntil != nil {
				return biometric.Challenge{}, lockErr
			}
		}
		return biometric.Challenge{}, fmt.Errorf("request challenge: %w", err)
	}
	if ch.Value == "" {
		return biometric.Challenge{}, apperrors.Internal("verifier returned an empty challenge")
	}

	ttl := ch.ExpiresIn
	if ttl <= 0 {
		ttl = s.ttl
		ch.ExpiresIn = ttl
	}

	s.mu.Lock()
	s.challenges.DeleteExpired()
	s.spent.DeleteExpired()
	s.challenges.Set(challengeKey(identifier, deviceID), ch.Value, ttl)
	if rec, ok := s.devices[deviceID]; ok {
		rec.authenticated = false
	}
	s.mu.Unlock()

	return ch, nil
}

// Login submits a signed challenge. The held challenge is discarded before the
// verifier is contacted, so a challenge is never presented twice.
func (s *BiometricService) Login(ctx context.Context, in biometric.LoginInput) (domainauth.Session, error) {
	if strings.TrimSpace(in.Identifier) == "" || in.DeviceID == "" {
		return domainauth.Session{}, apperrors.Validation("identifier and device id are required")
	}
	if in.Challenge == "" || in.Signature == "" {
		return domainauth.Session{}, apperrors.Validation("challenge and signature are required")
	}
	if err := s.lockoutError(in.DeviceID); err != nil {
		return domainauth.Session{}, err
	}
	if err := s.takeChallenge(in); err != nil {
		return domainauth.Session{}, err
	}

	result, err := s.verifier.Login(ctx, in)
	if err != nil {
		var rej *biometric.Rejection
		if errors.As(err, &rej) {
			failure := s.applyRejection(in.DeviceID, rej, true)
			s.logger.WarnContext(ctx, "biometric login rejected",
				"device_id", in.DeviceID,
				"failed_attempts", failure.FailedAttempts,
				"locked", failure.LockedUntil != nil,
			)
			return domainauth.Session{}, failure
		}
		return domainauth.Session{}, fmt.Errorf("biometric login: %w", err)
	}

	session, err := s.sessions.CompleteLogin(ctx, result.Token, result.Identity)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("complete biometric login: %w", err)
	}

	s.mu.Lock()
	rec := s.recordLocked(in.DeviceID)
	rec.enrollment.Reset()
	rec.authenticated = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "biometric login succeeded", "device_id", in.DeviceID, "user_id", result.Identity.UserID)
	return session, nil
}

// LoginWithDevice runs the whole flow with the injected signer: request a
// challenge, have the device sign it, submit the signature.
func (s *BiometricService) LoginWithDevice(ctx context.Context, identifier, deviceID, publicKey string) (domainauth.Session, error) {
	if s.signer == nil {
		return domainauth.Session{}, apperrors.Internal("no device signer configured")
	}
	ch, err := s.RequestChallenge(ctx, identifier, deviceID)
	if err != nil {
		return domainauth.Session{}, err
	}
	sig, err := s.signer.Sign(ctx, deviceID, ch.Value)
	if err != nil {
		s.discardChallenge(identifier, deviceID)
		return domainauth.Session{}, fmt.Errorf("sign challenge: %w", err)
	}
	return s.Login(ctx, biometric.LoginInput{
		Identifier: identifier,
		DeviceID:   deviceID,
		Challenge:  ch.Value,
		Signature:  sig,
		PublicKey:  publicKey,
	})
}

// Disable removes the device enrollment on the verifier and forgets it locally.
func (s *BiometricService) Disable(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return apperrors.ValidationField("device_id", "device id is required")
	}
	if err := s.verifier.Disable(ctx, deviceID); err != nil {
		return fmt.Errorf("disable device: %w", err)
	}

	s.mu.Lock()
	delete(s.devices, deviceID)
	suffix := "|" + deviceID
	for _, key := range s.challenges.Keys() {
		if strings.HasSuffix(key, suffix) {
			s.challenges.Delete(key)
		}
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "device disabled", "device_id", deviceID)
	return nil
}

// Status returns the verifier's view of the enrollment and refreshes the local
// lockout record from it.
func (s *BiometricService) Status(ctx context.Context, deviceID string) (biometric.Status, error) {
	if deviceID == "" {
		return biometric.Status{}, apperrors.ValidationField("device_id", "device id is required")
	}
	st, err := s.verifier.Status(ctx, deviceID)
	if err != nil {
		return biometric.Status{}, fmt.Errorf("biometric status: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !st.Enabled {
		delete(s.devices, deviceID)
		return st, nil
	}
	rec := s.recordLocked(deviceID)
	rec.enrolled = true
	rec.enrollment.Type = st.Type
	rec.enrollment.DeviceName = st.DeviceName
	rec.enrollment.FailedAttempts = st.FailedAttempts
	rec.enrollment.LockedUntil = st.LockedUntil
	if st.EnrolledAt != nil {
		rec.enrollment.EnrolledAt = *st.EnrolledAt
	}
	return st, nil
}

// State reports where identifier and deviceID stand in the login flow.
func (s *BiometricService) State(identifier, deviceID string) biometric.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.devices[deviceID]
	switch {
	case ok && rec.enrollment.IsLocked(s.now()):
		return biometric.StateLockedOut
	case s.challenges.Get(challengeKey(identifier, deviceID)) != nil:
		return biometric.StateChallenged
	case ok && rec.authenticated:
		return biometric.StateAuthenticated
	case ok && rec.enrolled:
		return biometric.StateEnrolled
	default:
		return biometric.StateNotEnrolled
	}
}

// Reset forgets every held challenge and device record.
func (s *BiometricService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges.DeleteAll()
	s.spent.DeleteAll()
	s.devices = make(map[string]*deviceRecord)
}

func (s *BiometricService) takeChallenge(in biometric.LoginInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := challengeKey(in.Identifier, in.DeviceID)
	held := s.challenges.Get(key)
	s.challenges.Delete(key)

	if held == nil || held.Value() != in.Challenge {
		reason := biometric.ErrChallengeExpired
		if s.spent.Get(in.Challenge) != nil {
			reason = biometric.ErrChallengeUsed
		}
		return &biometric.Error{Reason: reason, DeviceID: in.DeviceID}
	}
	s.spent.Set(in.Challenge, struct{}{}, ttlcache.DefaultTTL)
	return nil
}

func (s *BiometricService) discardChallenge(identifier, deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := challengeKey(identifier, deviceID)
	if held := s.challenges.Get(key); held != nil {
		s.spent.Set(held.Value(), struct{}{}, ttlcache.DefaultTTL)
	}
	s.challenges.Delete(key)
}

func (s *BiometricService) lockoutError(deviceID string) *biometric.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.devices[deviceID]
	if !ok || !rec.enrollment.IsLocked(s.now()) {
		return nil
	}
	until := *rec.enrollment.LockedUntil
	return &biometric.Error{
		Reason:         biometric.ErrLockedOut,
		DeviceID:       deviceID,
		FailedAttempts: rec.enrollment.FailedAttempts,
		LockedUntil:    &until,
	}
}

// applyRejection folds a verifier rejection into the device record. Counts come
// from the verifier when it reports them; otherwise only a rejected signature
// counts as a failed attempt.
func (s *BiometricService) applyRejection(deviceID string, rej *biometric.Rejection, signed bool) *biometric.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recordLocked(deviceID)
	rec.authenticated = false
	switch {
	case rej.FailedAttempts > 0:
		rec.enrollment.FailedAttempts = rej.FailedAttempts
	case signed:
		rec.enrollment.FailedAttempts++
	}
	rec.enrollment.LockedUntil = nil
	if rej.LockedUntil != nil && s.now().Before(*rej.LockedUntil) {
		until := *rej.LockedUntil
		rec.enrollment.LockedUntil = &until
	}

	out := &biometric.Error{
		Reason:         biometric.ErrRejected,
		DeviceID:       deviceID,
		FailedAttempts: rec.enrollment.FailedAttempts,
		LockedUntil:    rec.enrollment.LockedUntil,
	}
	if out.LockedUntil != nil {
		out.Reason = biometric.ErrLockedOut
	}
	return out
}

func (s *BiometricService) recordLocked(deviceID string) *deviceRecord {
	rec, ok := s.devices[deviceID]
	if !ok {
		rec = &deviceRecord{enrollment: biometric.Enrollment{DeviceID: deviceID}}
		s.devices[deviceID] = rec
	}
	return rec
}
