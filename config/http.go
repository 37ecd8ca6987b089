package config

import "time"

// HTTPConfig configures the local UI server.
type HTTPConfig struct {
	// Addr defaults to loopback; the engine serves one user on one machine.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"    envDefault:"10s"`

	// CompressionEnabled gzips JSON and text responses.
	CompressionEnabled bool `env:"HTTP_COMPRESSION_ENABLED" envDefault:"false"`
	CompressionLevel   int  `env:"HTTP_COMPRESSION_LEVEL"   envDefault:"6"`
}

// Sanitize clamps timeouts and the gzip level.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = "127.0.0.1:8080"
	}
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	h.CompressionLevel = min(max(h.CompressionLevel, 1), 9)
}
