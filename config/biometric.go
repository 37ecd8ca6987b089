package config

import (
	"fmt"
	"strings"
	"time"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
)

// BiometricMode selects the biometric verifier and account backend.
type BiometricMode string

const (
	// BiometricModeRemote talks to the banking API.
	BiometricModeRemote BiometricMode = "remote"
	// BiometricModeDev uses the in-memory dev backend (for development only).
	BiometricModeDev BiometricMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for BiometricMode.
func (m *BiometricMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "remote", "dev":
		*m = BiometricMode(v)
		return nil
	default:
		return fmt.Errorf("invalid BiometricMode: %q (valid options: remote, dev)", v)
	}
}

// DevBackendConfig controls the dev identity and verifier.
// Used when BIOMETRIC_MODE=dev for development and testing.
type DevBackendConfig struct {
	UserID          string        `env:"USER_ID"          envDefault:"dev-user"`
	Email           string        `env:"EMAIL"            envDefault:"dev@example.com"`
	FirstName       string        `env:"FIRST_NAME"       envDefault:"Dev"`
	LastName        string        `env:"LAST_NAME"        envDefault:"User"`
	Tier            string        `env:"TIER"             envDefault:"tier_3"`
	Verified        bool          `env:"VERIFIED"         envDefault:"true"`
	PINSet          bool          `env:"PIN_SET"          envDefault:"true"`
	Password        string        `env:"PASSWORD"         envDefault:"dev-password"`
	SigningKey      string        `env:"SIGNING_KEY"`
	TokenTTL        time.Duration `env:"TOKEN_TTL"        envDefault:"15m"`
	MaxAttempts     int           `env:"MAX_ATTEMPTS"     envDefault:"5"`
	LockoutDuration time.Duration `env:"LOCKOUT_DURATION" envDefault:"15m"`
}

// Identity builds the dev identity.
func (d DevBackendConfig) Identity() domainauth.Identity {
	return domainauth.Identity{
		UserID:            d.UserID,
		Email:             d.Email,
		FirstName:         d.FirstName,
		LastName:          d.LastName,
		Tier:              domainauth.VerificationTier(d.Tier),
		IdentityVerified:  d.Verified,
		TransactionPINSet: d.PINSet,
	}
}

// BiometricConfig groups biometric protocol configuration.
type BiometricConfig struct {
	Mode BiometricMode `env:"BIOMETRIC_MODE" envDefault:"remote"`

	// ChallengeTTL applies when the verifier does not state an expiry.
	ChallengeTTL time.Duration `env:"BIOMETRIC_CHALLENGE_TTL" envDefault:"60s"`

	// SpentTTL is how long used challenges are remembered.
	SpentTTL time.Duration `env:"BIOMETRIC_SPENT_TTL" envDefault:"10m"`

	Dev DevBackendConfig `envPrefix:"BIOMETRIC_DEV_"`
}

// Sanitize applies guardrails to biometric configuration values.
func (b *BiometricConfig) Sanitize() {
	if b.Mode == "" {
		b.Mode = BiometricModeRemote
	}
	if b.ChallengeTTL < time.Second {
		b.ChallengeTTL = 60 * time.Second
	}
	if b.SpentTTL < b.ChallengeTTL {
		b.SpentTTL = b.ChallengeTTL
	}
	if b.Dev.MaxAttempts < 1 {
		b.Dev.MaxAttempts = 1
	}
	if b.Dev.TokenTTL <= 0 {
		b.Dev.TokenTTL = 15 * time.Minute
	}
	if b.Dev.LockoutDuration <= 0 {
		b.Dev.LockoutDuration = 15 * time.Minute
	}
}
