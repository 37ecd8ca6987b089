package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClock decides whether a bearer credential is still usable by reading its
// embedded expiry claim. Signatures are not verified here; the backend remains the
// authority on authenticity. Every decode failure counts as expired.
type TokenClock struct {
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenClock constructs a TokenClock. A nil now uses time.Now.
func NewTokenClock(now func() time.Time) *TokenClock {
	if now == nil {
		now = time.Now
	}
	return &TokenClock{now: now, parser: jwt.NewParser()}
}

// ExpiresAt returns the expiry claim of token, or false when it cannot be read.
func (c *TokenClock) ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsExpired reports whether token is absent, undecodable, missing an expiry, or
// at or past its expiry.
func (c *TokenClock) IsExpired(token string) bool {
	exp, ok := c.ExpiresAt(token)
	if !ok {
		return true
	}
	return !c.now().Before(exp)
}

// Remaining returns how long token stays valid; zero when already expired.
func (c *TokenClock) Remaining(token string) time.Duration {
	exp, ok := c.ExpiresAt(token)
	if !ok {
		return 0
	}
	if d := exp.Sub(c.now()); d > 0 {
		return d
	}
	return 0
}
