package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/vaultline/session-engine/config"
	"github.com/vaultline/session-engine/internal/adapters/apiclient"
	"github.com/vaultline/session-engine/internal/adapters/devsigner"
	"github.com/vaultline/session-engine/internal/adapters/devverifier"
	"github.com/vaultline/session-engine/internal/adapters/memstore"
	redisadapter "github.com/vaultline/session-engine/internal/adapters/redis"
	"github.com/vaultline/session-engine/internal/adapters/viewcache"
	"github.com/vaultline/session-engine/internal/domain/navigation"
	"github.com/vaultline/session-engine/internal/domain/recovery"
	"github.com/vaultline/session-engine/internal/ports"
	"github.com/vaultline/session-engine/internal/service"
)

// Engine holds the wired session engine.
type Engine struct {
	Sessions   *service.SessionStore
	Auth       *service.AuthService
	Biometric  *service.BiometricService
	Mutations  *service.MutationService
	Recovery   *service.RecoveryRouter
	Views      *service.ViewService
	RootGuard  *service.RootGuard
	AreaGuard  *service.AreaGuard
	Navigation *navigation.Memory
	Paths      navigation.Paths
	Signer     *devsigner.Signer

	// FundAccount backs the insufficient-balance call to action.
	FundAccount recovery.Callback
}

// EngineDeps groups dependencies for engine construction.
type EngineDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient // Required when any store is redis
	Logger      *slog.Logger
}

// backend is the remote side of the engine: the banking API or the dev stand-in.
type backend struct {
	transport ports.Transport
	passwords ports.PasswordAuthenticator
	identity  ports.IdentityFetcher
	verifier  ports.BiometricVerifier
}

// BuildEngine wires stores, backend and services from configuration.
func BuildEngine(deps EngineDeps) (*Engine, error) {
	if deps.Config == nil {
		return nil, errors.New("engine config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := service.NewTokenClock(nil)
	stores, err := buildSessionStores(cfg, deps.RedisClient, clock)
	if err != nil {
		return nil, err
	}
	cache, err := buildViewCache(cfg, deps.RedisClient)
	if err != nil {
		return nil, err
	}
	be, err := buildBackend(cfg, stores.Credentials, logger)
	if err != nil {
		return nil, err
	}

	memory := navigation.NewMemory()
	paths := cfg.Navigation.Paths()
	sessions := service.NewSessionStore(service.SessionStoreOptions{
		Stores:     stores,
		Clock:      clock,
		Navigation: memory,
		Logger:     logger,
	})
	recovery := service.NewRecoveryRouter(service.RecoveryRouterOptions{Logger: logger})
	views := service.NewViewService(service.ViewServiceOptions{
		Transport: be.transport,
		Cache:     cache,
		Sessions:  sessions,
		Identity:  be.identity,
		Logger:    logger,
	})
	signer := devsigner.New()
	guardOpts := service.GuardOptions{Sessions: sessions, Paths: paths, Memory: memory}

	return &Engine{
		Sessions: sessions,
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Passwords: be.passwords,
			Sessions:  sessions,
			Recovery:  recovery,
		}),
		Biometric: service.NewBiometricService(service.BiometricServiceOptions{
			Verifier: be.verifier,
			Sessions: sessions,
			Signer:   signer,
			Config: service.BiometricConfig{
				ChallengeTTL: cfg.Biometric.ChallengeTTL,
				SpentTTL:     cfg.Biometric.SpentTTL,
			},
			Logger: logger,
		}),
		Mutations: service.NewMutationService(service.MutationServiceOptions{
			Transport: be.transport,
			Views:     cache,
			Hooks: service.MutationHooks{
				Sessions: sessions,
				Recovery: recovery,
				Identity: views,
			},
			Logger: logger,
		}),
		Recovery:    recovery,
		Views:       views,
		RootGuard:   service.NewRootGuard(guardOpts),
		AreaGuard:   service.NewAreaGuard(guardOpts),
		Navigation:  memory,
		Paths:       paths,
		Signer:      signer,
		FundAccount: fundAccount(memory, paths, logger),
	}, nil
}

// fundAccount sends the user to the wallet after login or on the next guarded
// navigation; the wallet surface owns funding.
func fundAccount(memory *navigation.Memory, paths navigation.Paths, logger *slog.Logger) recovery.Callback {
	return func(ctx context.Context) error {
		memory.RememberReturnTo(paths.FallbackHome)
		logger.InfoContext(ctx, "fund account requested", "return_to", paths.FallbackHome)
		return nil
	}
}

func buildSessionStores(cfg *config.AppConfig, client redis.UniversalClient, clock *service.TokenClock) (service.SessionPersistence, error) {
	switch cfg.Session.CredentialStore {
	case config.StoreRedis:
		if client == nil {
			return service.SessionPersistence{}, errors.New("redis credential store selected but redis is not connected")
		}
		return service.SessionPersistence{
			Credentials: redisadapter.NewCredentialStore(client, cfg.Session.KeyPrefix, clock.ExpiresAt),
			Identities:  redisadapter.NewIdentityStore(client, cfg.Session.KeyPrefix),
		}, nil
	default:
		return service.SessionPersistence{
			Credentials: memstore.NewCredentialStore(clock.ExpiresAt),
			Identities:  memstore.NewIdentityStore(),
		}, nil
	}
}

//nolint:ireturn // the cache implementation is picked by configuration.
func buildViewCache(cfg *config.AppConfig, client redis.UniversalClient) (ports.ViewCache, error) {
	switch cfg.ViewCache.Store {
	case config.StoreRedis:
		if client == nil {
			return nil, errors.New("redis view cache selected but redis is not connected")
		}
		return redisadapter.NewViewCache(client, cfg.Session.KeyPrefix, cfg.ViewCache.TTL), nil
	default:
		return viewcache.NewMemory(cfg.ViewCache.TTL), nil
	}
}

func buildBackend(cfg *config.AppConfig, creds ports.CredentialStore, logger *slog.Logger) (backend, error) {
	if cfg.Biometric.Mode == config.BiometricModeDev {
		return buildDevBackend(cfg, logger)
	}

	transport, err := apiclient.NewTransport(apiclient.TransportOptions{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		Credentials: creds,
		Logger:      logger,
	})
	if err != nil {
		return backend{}, fmt.Errorf("api transport: %w", err)
	}
	auth := apiclient.NewAuthClient(transport)
	return backend{
		transport: transport,
		passwords: auth,
		identity:  auth,
		verifier:  apiclient.NewBiometricClient(transport),
	}, nil
}

// buildDevBackend runs accounts and biometrics in process. Mutations and views
// still go to the API when a base URL is configured.
func buildDevBackend(cfg *config.AppConfig, logger *slog.Logger) (backend, error) {
	dev := cfg.Biometric.Dev
	verifier, err := devverifier.New(devverifier.Config{
		Identity:        dev.Identity(),
		Password:        dev.Password,
		SigningKey:      []byte(dev.SigningKey),
		TokenTTL:        dev.TokenTTL,
		ChallengeTTL:    cfg.Biometric.ChallengeTTL,
		MaxAttempts:     dev.MaxAttempts,
		LockoutDuration: dev.LockoutDuration,
	})
	if err != nil {
		return backend{}, fmt.Errorf("dev verifier: %w", err)
	}
	logger.Warn("dev backend enabled: accounts and biometrics are served in process", "user_id", dev.UserID)

	accounts := verifier.Accounts()
	be := backend{
		transport: unavailableTransport{},
		passwords: accounts,
		identity:  accounts,
		verifier:  verifier,
	}
	if cfg.API.BaseURL != "" {
		transport, err := apiclient.NewTransport(apiclient.TransportOptions{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return backend{}, fmt.Errorf("api transport: %w", err)
		}
		be.transport = transport
	}
	return be, nil
}

// errNoAPI is returned for API calls when no base URL is configured.
var errNoAPI = errors.New("banking api is not configured")

type unavailableTransport struct{}

func (unavailableTransport) Call(context.Context, ports.Request) (*ports.Response, error) {
	return nil, errNoAPI
}
