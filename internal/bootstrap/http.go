package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vaultline/session-engine/config"
	httpx "github.com/vaultline/session-engine/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	HTTP   config.HTTPConfig
	Engine *Engine
	Logger *slog.Logger
}

// NewHTTPServer builds the local UI server around the engine. It does not listen.
func NewHTTPServer(cfg HTTPServerConfig) (*http.Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("http server needs an engine")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpCfg := cfg.HTTP
	httpCfg.Sanitize()

	return &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           BuildHTTPHandler(cfg.Engine, httpCfg, logger),
		ReadHeaderTimeout: httpCfg.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}

// BuildHTTPHandler wires the engine into the router. The router applies its own
// recover, logging and request id middleware.
func BuildHTTPHandler(engine *Engine, httpCfg config.HTTPConfig, logger *slog.Logger) http.Handler {
	services := httpx.RouterServices{
		Sessions:    engine.Auth,
		Snapshots:   engine.Sessions,
		Biometric:   engine.Biometric,
		DeviceKeys:  engine.Signer,
		Mutations:   engine.Mutations,
		Recovery:    engine.Recovery,
		Views:       engine.Views,
		RootGuard:   engine.RootGuard,
		AreaGuard:   engine.AreaGuard,
		Paths:       engine.Paths,
		FundAccount: engine.FundAccount,
		Logger:      logger,
	}
	if httpCfg.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", httpCfg.CompressionLevel)
		services.Compression = &httpx.CompressionConfig{Level: httpCfg.CompressionLevel, Logger: logger}
	}
	return httpx.NewRouter(services)
}

// ServeUntilDone listens until ctx ends, then shuts the server down within
// shutdownTimeout. A listen failure is returned at once.
func ServeUntilDone(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	// ctx is already done; shutdown gets a fresh deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	<-serveErr
	logger.Info("HTTP server stopped")
	return nil
}
