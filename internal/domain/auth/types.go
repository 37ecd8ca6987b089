package auth

// Package auth contains domain-level types for the session and the principal.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
)

// VerificationTier is the discrete identity-verification level that gates features.
// Keep string form for easy persistence and JSON.
type VerificationTier string

const (
	TierNotSet VerificationTier = ""
	Tier1      VerificationTier = "tier_1"
	Tier2      VerificationTier = "tier_2"
	Tier3      VerificationTier = "tier_3"
)

// UnmarshalText implements encoding.TextUnmarshaler for VerificationTier.
// Accepts "tier_1", "tier1", "TIER_1" and "1"; empty means not set.
func (t *VerificationTier) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	v = strings.ReplaceAll(v, "_", "")
	switch v {
	case "", "notset", "none":
		*t = TierNotSet
	case "tier1", "1":
		*t = Tier1
	case "tier2", "2":
		*t = Tier2
	case "tier3", "3":
		*t = Tier3
	default:
		return fmt.Errorf("invalid verification tier: %q", string(text))
	}
	return nil
}

// Identity is the authenticated principal as far as guards and mutations care.
// Adapters map backend user payloads into this shape.
type Identity struct {
	UserID            string           `json:"user_id"`
	Email             string           `json:"email"`
	FirstName         string           `json:"first_name,omitempty"`
	LastName          string           `json:"last_name,omitempty"`
	Tier              VerificationTier `json:"verification_tier"`
	IdentityVerified  bool             `json:"identity_verified"` // BVN-equivalent check passed
	TransactionPINSet bool             `json:"transaction_pin_set"`
}

// IsFullyVerified reports whether the identity may use areas that require full verification.
func (i Identity) IsFullyVerified() bool {
	return i.IdentityVerified && i.TransactionPINSet
}

// Key returns the identifier used to scope cached read-views for this principal.
func (i Identity) Key() string { return i.UserID }

// Session is the read-only projection of the session state.
// Identity is nil when logged out.
type Session struct {
	Identity    *Identity `json:"identity"`
	LoggedIn    bool      `json:"logged_in"`
	Initialized bool      `json:"initialized"`
}

// IsFullyVerified returns false when there is no identity.
func (s Session) IsFullyVerified() bool {
	return s.Identity != nil && s.Identity.IsFullyVerified()
}
