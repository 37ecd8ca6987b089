package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/vaultline/session-engine/internal/domain/navigation"
)

// StoreKind selects where a component keeps its state.
type StoreKind string

const (
	// StoreMemory keeps state in process.
	StoreMemory StoreKind = "memory"
	// StoreRedis keeps state in Redis.
	StoreRedis StoreKind = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreKind.
func (s *StoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis":
		*s = StoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid store: %q (valid options: memory, redis)", v)
	}
}

const defaultKeyPrefix = "vaultline:default:"

// SessionConfig controls credential storage and the background token check.
type SessionConfig struct {
	// CredentialStore selects the credential and identity store.
	CredentialStore StoreKind `env:"CREDENTIAL_STORE" envDefault:"memory"`

	// KeyPrefix namespaces Redis keys, one prefix per user profile.
	KeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"vaultline:default:"`

	// CheckInterval is how often the stored credential is re-validated.
	CheckInterval time.Duration `env:"SESSION_CHECK_INTERVAL" envDefault:"30s"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.CredentialStore == "" {
		s.CredentialStore = StoreMemory
	}
	s.KeyPrefix = strings.TrimSpace(s.KeyPrefix)
	if s.KeyPrefix == "" {
		s.KeyPrefix = defaultKeyPrefix
	}
	if !strings.HasSuffix(s.KeyPrefix, ":") {
		s.KeyPrefix += ":"
	}
	if s.CheckInterval < time.Second {
		s.CheckInterval = time.Second
	}
}

// NavigationConfig lays out the surfaces the route guards know about.
type NavigationConfig struct {
	Login           string   `env:"NAV_LOGIN_PATH"       envDefault:"/login"`
	EntrySurfaces   []string `env:"NAV_ENTRY_SURFACES"   envDefault:"/,/login,/register"`
	DefaultLanding  string   `env:"NAV_DEFAULT_LANDING"  envDefault:"/user/dashboard"`
	ProtectedPrefix string   `env:"NAV_PROTECTED_PREFIX" envDefault:"/user"`
	FallbackHome    string   `env:"NAV_FALLBACK_HOME"    envDefault:"/user/dashboard"`
}

// Sanitize fills empty paths from the defaults and drops blank surfaces.
func (n *NavigationConfig) Sanitize() {
	def := navigation.DefaultPaths()
	n.Login = pathOr(n.Login, def.Login)
	n.DefaultLanding = pathOr(n.DefaultLanding, def.DefaultLanding)
	n.ProtectedPrefix = pathOr(n.ProtectedPrefix, def.ProtectedPrefix)
	n.FallbackHome = pathOr(n.FallbackHome, def.FallbackHome)

	surfaces := make([]string, 0, len(n.EntrySurfaces))
	for _, s := range n.EntrySurfaces {
		if s = strings.TrimSpace(s); strings.HasPrefix(s, "/") {
			surfaces = append(surfaces, s)
		}
	}
	if len(surfaces) == 0 {
		surfaces = def.EntrySurfaces
	}
	n.EntrySurfaces = surfaces
}

// Paths converts the configuration for the guards.
func (n NavigationConfig) Paths() navigation.Paths {
	return navigation.Paths{
		Login:           n.Login,
		EntrySurfaces:   append([]string(nil), n.EntrySurfaces...),
		DefaultLanding:  n.DefaultLanding,
		ProtectedPrefix: n.ProtectedPrefix,
		FallbackHome:    n.FallbackHome,
	}
}

func pathOr(p, def string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		return def
	}
	return p
}
