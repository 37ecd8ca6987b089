package config

import (
	"strings"
	"time"
)

// APIConfig points the engine at the remote banking API.
type APIConfig struct {
	// BaseURL is the API root, e.g. "https://api.example.com/v1/".
	BaseURL string `env:"API_BASE_URL"`

	// Timeout bounds each API call.
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to API client configuration values.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimSpace(a.BaseURL)
	if a.Timeout <= 0 {
		a.Timeout = 15 * time.Second
	}
}
