package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - api.go: Remote banking API client
//   - session.go: Credential storage, token watch and navigation layout
//   - biometric.go: Biometric verifier selection and the dev backend
//   - database.go: Redis and the view cache
//   - http.go: Local HTTP server
//   - services.go: Service mode configuration
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, debug level).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http,tokenwatch"`

	API        APIConfig
	Session    SessionConfig
	Navigation NavigationConfig
	Biometric  BiometricConfig
	ViewCache  ViewCacheConfig

	// Redis backs the credential store and view cache when selected.
	Redis RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.API.Sanitize()
	c.Session.Sanitize()
	c.Navigation.Sanitize()
	c.Biometric.Sanitize()
	c.ViewCache.Sanitize()
	c.HTTP.Sanitize()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate reports combinations that cannot start.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Biometric.Mode == BiometricModeRemote && c.API.BaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is required when BIOMETRIC_MODE=remote"))
	}
	if c.Biometric.Mode == BiometricModeDev && c.Biometric.Dev.Password == "" {
		errs = append(errs, errors.New("BIOMETRIC_DEV_PASSWORD is required when BIOMETRIC_MODE=dev"))
	}
	if c.Biometric.Mode == BiometricModeDev && !c.IsDev {
		errs = append(errs, errors.New("BIOMETRIC_MODE=dev is only allowed with DEV=true"))
	}
	if _, err := c.GetEnabledServices(); err != nil {
		errs = append(errs, fmt.Errorf("invalid service configuration: %w", err))
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether any component is configured to store in Redis.
func (c *AppConfig) UsesRedis() bool {
	return c.Session.CredentialStore == StoreRedis || c.ViewCache.Store == StoreRedis
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsTokenWatchEnabled returns true if the background credential check is enabled.
func (c *AppConfig) IsTokenWatchEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeTokenWatch]
}
