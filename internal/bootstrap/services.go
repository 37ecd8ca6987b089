package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vaultline/session-engine/config"
	"github.com/vaultline/session-engine/internal/adapters/tokenwatch"
)

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config *config.AppConfig
	Engine *Engine
	Logger *slog.Logger
}

// managedService is one long-running component. run blocks until ctx ends and
// returns nil on a clean stop.
type managedService struct {
	mode config.ServiceMode
	run  func(ctx context.Context) error
}

// RunServicesWithShutdown restores the persisted session, runs every enabled
// service and blocks until SIGINT/SIGTERM or until one service fails, which
// stops the others.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	if cfg.Engine == nil {
		return errors.New("service orchestration config missing Engine")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := cfg.Engine.Sessions.Bootstrap(ctx)
	logger.InfoContext(ctx, "session restored", "logged_in", session.LoggedIn)

	if err := superviseServices(ctx, plannedServices(cfg, enabled, logger), logger); err != nil {
		logger.Error("service failed", "error", err)
		return err
	}
	logger.Info("all services stopped")
	return nil
}

// plannedServices lists the enabled services in ValidServiceModes order.
func plannedServices(cfg *ServiceOrchestrationConfig, enabled map[config.ServiceMode]bool, logger *slog.Logger) []managedService {
	out := make([]managedService, 0, len(enabled))
	for _, mode := range config.ValidServiceModes() {
		if !enabled[mode] {
			continue
		}
		switch mode {
		case config.ServiceModeHTTP:
			out = append(out, managedService{mode: mode, run: httpService(cfg, logger)})
		case config.ServiceModeTokenWatch:
			out = append(out, managedService{mode: mode, run: tokenWatchService(cfg, logger)})
		}
	}
	return out
}

func httpService(cfg *ServiceOrchestrationConfig, logger *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		server, err := NewHTTPServer(HTTPServerConfig{HTTP: cfg.Config.HTTP, Engine: cfg.Engine, Logger: logger})
		if err != nil {
			return err
		}
		return ServeUntilDone(ctx, server, cfg.Config.HTTP.ShutdownTimeout, logger)
	}
}

func tokenWatchService(cfg *ServiceOrchestrationConfig, logger *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		runner, err := tokenwatch.NewRunner(tokenwatch.RunnerOptions{
			Checker:  cfg.Engine.Sessions,
			Interval: cfg.Config.Session.CheckInterval,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		return runner.Run(ctx)
	}
}

// superviseServices runs services until ctx ends. The first failure cancels the
// rest and is returned once they have all stopped.
func superviseServices(ctx context.Context, services []managedService, logger *slog.Logger) error {
	if len(services) == 0 {
		return errors.New("no services to run")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		g.Go(func() error {
			logger.InfoContext(gctx, "service started", "service", svc.mode)
			if err := svc.run(gctx); err != nil {
				return fmt.Errorf("%s: %w", svc.mode, err)
			}
			logger.InfoContext(gctx, "service stopped", "service", svc.mode)
			return nil
		})
	}
	return g.Wait()
}
