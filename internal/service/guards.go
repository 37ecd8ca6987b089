package service

import (
	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/navigation"
)

// SessionReader is the read side of SessionStore used by the route guards.
type SessionReader interface {
	Snapshot() domainauth.Session
	CredentialValid() bool
}

// GuardOptions groups dependencies for the route guards.
type GuardOptions struct {
	Sessions SessionReader
	Paths    navigation.Paths
	Memory   *navigation.Memory
}

func guardDefaults(opts GuardOptions) GuardOptions {
	if opts.Sessions == nil {
		panic("SessionReader is required")
	}
	if opts.Paths.Login == "" {
		opts.Paths = navigation.DefaultPaths()
	}
	if opts.Memory == nil {
		opts.Memory = navigation.NewMemory()
	}
	return opts
}

// RootGuard wraps the application root. It keeps authenticated users off the
// entry surfaces (landing, login, register).
type RootGuard struct {
	sessions SessionReader
	paths    navigation.Paths
	memory   *navigation.Memory
}

// NewRootGuard constructs a RootGuard.
func NewRootGuard(opts GuardOptions) *RootGuard {
	opts = guardDefaults(opts)
	return &RootGuard{sessions: opts.Sessions, paths: opts.Paths, memory: opts.Memory}
}

// Evaluate decides what happens at location. A logged-in user on an entry surface
// goes to the remembered return location, else to the default landing page.
func (g *RootGuard) Evaluate(location string) navigation.Decision {
	s := g.sessions.Snapshot()
	if !s.Initialized {
		return navigation.Decision{Action: navigation.Loading}
	}
	if s.LoggedIn && g.paths.IsEntrySurface(location) {
		target, ok := g.memory.ConsumeReturnTo()
		if !ok {
			target = g.paths.DefaultLanding
		}
		return navigation.Decision{Action: navigation.Redirect, Target: target}
	}
	return navigation.Decision{Action: navigation.Render}
}

// AreaGuard wraps the protected zone.
type AreaGuard struct {
	sessions SessionReader
	paths    navigation.Paths
	memory   *navigation.Memory
}

// NewAreaGuard constructs an AreaGuard.
func NewAreaGuard(opts GuardOptions) *AreaGuard {
	opts = guardDefaults(opts)
	return &AreaGuard{sessions: opts.Sessions, paths: opts.Paths, memory: opts.Memory}
}

// Evaluate decides what happens at location inside the protected zone.
//
// An expired credential or missing identity sends the user to login and remembers
// location, except right after a deliberate logout, where the check is skipped
// once and rendering stays blocked. An authenticated user who is not fully verified
// is confined to the fallback home.
func (g *AreaGuard) Evaluate(location string) navigation.Decision {
	s := g.sessions.Snapshot()
	if !s.Initialized {
		return navigation.Decision{Action: navigation.Loading}
	}

	if s.Identity == nil || !g.sessions.CredentialValid() {
		if g.memory.ConsumeLoggingOut() {
			return navigation.Decision{Action: navigation.Loading}
		}
		g.memory.RememberReturnTo(location)
		return navigation.Decision{Action: navigation.Redirect, Target: g.paths.Login}
	}

	if !s.IsFullyVerified() && !g.paths.IsFallbackHome(location) {
		return navigation.Decision{Action: navigation.Redirect, Target: g.paths.FallbackHome}
	}
	return navigation.Decision{Action: navigation.Render}
}
