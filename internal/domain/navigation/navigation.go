// Package navigation holds the location model used by the route guards.
package navigation

import (
	"net/url"
	"strings"
	"sync"
)

// Action is what a guard tells the UI to do for a location.
type Action int

const (
	// Loading blocks rendering: the session is not settled yet.
	Loading Action = iota
	// Render lets the children render.
	Render
	// Redirect sends the user to Decision.Target.
	Redirect
)

func (a Action) String() string {
	switch a {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the outcome of evaluating a guard for one location.
type Decision struct {
	Action Action
	Target string
}

// Paths configures the surfaces the guards know about.
type Paths struct {
	Login           string
	EntrySurfaces   []string
	DefaultLanding  string
	ProtectedPrefix string
	FallbackHome    string
}

// DefaultPaths returns the layout used by the wallet UI.
func DefaultPaths() Paths {
	return Paths{
		Login:           "/login",
		EntrySurfaces:   []string{"/", "/login", "/register"},
		DefaultLanding:  "/user/dashboard",
		ProtectedPrefix: "/user",
		FallbackHome:    "/user/dashboard",
	}
}

// IsEntrySurface reports whether location is a pre-auth surface.
func (p Paths) IsEntrySurface(location string) bool {
	path := PathOf(location)
	for _, s := range p.EntrySurfaces {
		if path == s {
			return true
		}
	}
	return false
}

// IsProtected reports whether location belongs to the protected zone.
func (p Paths) IsProtected(location string) bool {
	path := PathOf(location)
	prefix := strings.TrimSuffix(p.ProtectedPrefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// IsFallbackHome reports whether location is the protected zone's home.
func (p Paths) IsFallbackHome(location string) bool {
	return strings.TrimSuffix(PathOf(location), "/") == strings.TrimSuffix(p.FallbackHome, "/")
}

// PathOf strips query and fragment from a location.
func PathOf(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Path == "" {
		return location
	}
	return u.Path
}

// SafeLocation returns location when it is an in-app relative path, otherwise "".
// It keeps remembered return-to locations from pointing off-site.
func SafeLocation(location string) string {
	if location == "" || !strings.HasPrefix(location, "/") || strings.HasPrefix(location, "//") {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return location
}

// Memory is the navigation state shared by the guards and the logout flow:
// the remembered return-to location and the single-use logout-in-progress flag.
type Memory struct {
	mu         sync.Mutex
	returnTo   string
	loggingOut bool
}

// NewMemory constructs an empty navigation memory.
func NewMemory() *Memory { return &Memory{} }

// RememberReturnTo captures location for the next post-login redirect.
func (m *Memory) RememberReturnTo(location string) {
	loc := SafeLocation(location)
	if loc == "" {
		return
	}
	m.mu.Lock()
	m.returnTo = loc
	m.mu.Unlock()
}

// ConsumeReturnTo returns and clears the remembered location.
func (m *Memory) ConsumeReturnTo() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc := m.returnTo
	m.returnTo = ""
	return loc, loc != ""
}

// PeekReturnTo returns the remembered location without clearing it.
func (m *Memory) PeekReturnTo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.returnTo
}

// MarkLoggingOut raises the logout-in-progress flag.
func (m *Memory) MarkLoggingOut() {
	m.mu.Lock()
	m.loggingOut = true
	m.mu.Unlock()
}

// ConsumeLoggingOut reports whether the flag was raised and clears it.
func (m *Memory) ConsumeLoggingOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.loggingOut
	m.loggingOut = false
	return was
}

// Reset clears everything.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.returnTo = ""
	m.loggingOut = false
	m.mu.Unlock()
}
