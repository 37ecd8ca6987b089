package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/domain/navigation"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "both services with whitespace",
			input:    " http , tokenwatch ",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeTokenWatch: true},
		},
		{
			name:     "empty entries are skipped",
			input:    "tokenwatch,,",
			expected: map[ServiceMode]bool{ServiceModeTokenWatch: true},
		},
		{
			name:     "case-insensitive and repeated",
			input:    "HTTP,http,TokenWatch",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeTokenWatch: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "http,scheduler",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := AppConfig{Services: "tokenwatch"}
	if cfg.IsHTTPServerEnabled() {
		t.Errorf("IsHTTPServerEnabled(): expected false")
	}
	if !cfg.IsTokenWatchEnabled() {
		t.Errorf("IsTokenWatchEnabled(): expected true")
	}

	cfg = AppConfig{Services: "invalid-service"}
	if cfg.IsHTTPServerEnabled() || cfg.IsTokenWatchEnabled() {
		t.Errorf("expected every service disabled with invalid config")
	}
}

func TestValidServiceModes(t *testing.T) {
	expected := []ServiceMode{ServiceModeHTTP, ServiceModeTokenWatch}
	if modes := ValidServiceModes(); !reflect.DeepEqual(modes, expected) {
		t.Errorf("expected %v, got %v", expected, modes)
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Session.CredentialStore != StoreMemory {
		t.Errorf("expected memory credential store, got %q", cfg.Session.CredentialStore)
	}
	if cfg.Session.KeyPrefix != "vaultline:default:" {
		t.Errorf("unexpected key prefix %q", cfg.Session.KeyPrefix)
	}
	if cfg.Biometric.Mode != BiometricModeRemote {
		t.Errorf("expected remote biometric mode, got %q", cfg.Biometric.Mode)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("unexpected api timeout %v", cfg.API.Timeout)
	}
	if !reflect.DeepEqual(cfg.Navigation.Paths(), navigation.DefaultPaths()) {
		t.Errorf("expected default navigation paths, got %#v", cfg.Navigation.Paths())
	}
	if cfg.UsesRedis() {
		t.Errorf("expected no redis by default")
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("DEV", "true")
	t.Setenv("SERVICES", "http")
	t.Setenv("API_BASE_URL", " https://api.example.com/v1/ ")
	t.Setenv("CREDENTIAL_STORE", "Redis")
	t.Setenv("SESSION_KEY_PREFIX", "vaultline:work")
	t.Setenv("VIEW_CACHE", "redis")
	t.Setenv("VIEW_CACHE_TTL", "90s")
	t.Setenv("REDIS_URI", "redis://cache:6379/2")
	t.Setenv("REDIS_CLUSTER_NODES", "a:7000,b:7001")
	t.Setenv("NAV_ENTRY_SURFACES", "/,/signin")
	t.Setenv("NAV_LOGIN_PATH", "/signin")
	t.Setenv("BIOMETRIC_MODE", "dev")
	t.Setenv("BIOMETRIC_DEV_USER_ID", "u-42")
	t.Setenv("BIOMETRIC_DEV_TIER", "tier_2")
	t.Setenv("BIOMETRIC_DEV_VERIFIED", "false")
	t.Setenv("BIOMETRIC_DEV_MAX_ATTEMPTS", "0")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.API.BaseURL != "https://api.example.com/v1/" {
		t.Errorf("expected trimmed base url, got %q", cfg.API.BaseURL)
	}
	if cfg.Session.CredentialStore != StoreRedis || cfg.ViewCache.Store != StoreRedis {
		t.Errorf("expected redis stores, got %q and %q", cfg.Session.CredentialStore, cfg.ViewCache.Store)
	}
	if cfg.Session.KeyPrefix != "vaultline:work:" {
		t.Errorf("expected prefix with trailing colon, got %q", cfg.Session.KeyPrefix)
	}
	if cfg.ViewCache.TTL != 90*time.Second {
		t.Errorf("unexpected view cache ttl %v", cfg.ViewCache.TTL)
	}
	if !reflect.DeepEqual(cfg.Redis.ClusterNodes, []string{"a:7000", "b:7001"}) {
		t.Errorf("unexpected cluster nodes %v", cfg.Redis.ClusterNodes)
	}
	paths := cfg.Navigation.Paths()
	if paths.Login != "/signin" || !reflect.DeepEqual(paths.EntrySurfaces, []string{"/", "/signin"}) {
		t.Errorf("unexpected navigation paths %#v", paths)
	}

	id := cfg.Biometric.Dev.Identity()
	if id.UserID != "u-42" || id.Tier != domainauth.Tier2 || id.IdentityVerified {
		t.Errorf("unexpected dev identity %#v", id)
	}
	if cfg.Biometric.Dev.MaxAttempts != 1 {
		t.Errorf("expected max attempts clamped to 1, got %d", cfg.Biometric.Dev.MaxAttempts)
	}
	if !cfg.UsesRedis() {
		t.Errorf("expected redis in use")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestAppConfig_ParseEnvRejectsUnknownStore(t *testing.T) {
	t.Setenv("CREDENTIAL_STORE", "sqlite")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected parse error for unknown store")
	}
}

func TestAppConfig_Validate(t *testing.T) {
	cfg := AppConfig{
		Services:  "http",
		Biometric: BiometricConfig{Mode: BiometricModeRemote},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "API_BASE_URL") {
		t.Fatalf("expected missing base url error, got %v", err)
	}

	cfg = AppConfig{
		Services:  "nope",
		Biometric: BiometricConfig{Mode: BiometricModeDev},
	}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"BIOMETRIC_DEV_PASSWORD", "DEV=true", "invalid service configuration"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestNavigationConfig_Sanitize(t *testing.T) {
	n := NavigationConfig{
		Login:         "login",
		EntrySurfaces: []string{" ", "register"},
		FallbackHome:  " /user/home ",
	}

	n.Sanitize()

	def := navigation.DefaultPaths()
	if n.Login != def.Login {
		t.Errorf("expected relative login path replaced, got %q", n.Login)
	}
	if !reflect.DeepEqual(n.EntrySurfaces, def.EntrySurfaces) {
		t.Errorf("expected default entry surfaces, got %v", n.EntrySurfaces)
	}
	if n.FallbackHome != "/user/home" {
		t.Errorf("expected trimmed fallback home, got %q", n.FallbackHome)
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	h := HTTPConfig{CompressionLevel: 12}
	h.Sanitize()
	if h.CompressionLevel != 9 {
		t.Errorf("expected level clamped to 9, got %d", h.CompressionLevel)
	}
	h = HTTPConfig{CompressionLevel: -3}
	h.Sanitize()
	if h.CompressionLevel != 1 {
		t.Errorf("expected level clamped to 1, got %d", h.CompressionLevel)
	}
	if h.Addr != "127.0.0.1:8080" {
		t.Errorf("expected loopback default addr, got %q", h.Addr)
	}
	if h.ReadHeaderTimeout != 10*time.Second || h.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected default timeouts, got %v/%v", h.ReadHeaderTimeout, h.ShutdownTimeout)
	}
}
