package httpx

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/vaultline/session-engine/internal/domain/navigation"
	"github.com/vaultline/session-engine/internal/domain/recovery"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions   SessionAPI
	Snapshots  SessionSnapshotter
	Biometric  BiometricAPI // Optional
	DeviceKeys DeviceKeys   // Optional: public keys for server-held device keys
	Mutations  MutationAPI
	Recovery   RecoveryAPI
	Views      ViewAPI // Optional
	RootGuard  GuardEvaluator
	AreaGuard  GuardEvaluator
	Paths      navigation.Paths

	// FundAccount backs the insufficient-balance call to action. Optional.
	FundAccount recovery.Callback

	Compression *CompressionConfig // Optional: gzip when set
	Logger      *slog.Logger
}

// NewRouter creates the local UI server: JSON API routes plus guarded page routes.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	health := HealthHandler(services.Snapshots)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	registerSessionRoutes(mux, &SessionHandlers{Svc: services.Sessions, Logger: logger})
	if services.Biometric != nil {
		registerBiometricRoutes(mux, &BiometricHandlers{Svc: services.Biometric, Keys: services.DeviceKeys, Logger: logger})
	}
	registerMutationRoutes(mux, &MutationHandlers{
		Svc:         services.Mutations,
		Recovery:    services.Recovery,
		FundAccount: services.FundAccount,
		Logger:      logger,
	})
	registerRecoveryRoutes(mux, &RecoveryHandlers{Svc: services.Recovery, Logger: logger})
	if services.Views != nil {
		mux.HandleFunc("GET /api/views/{view}", (&ViewHandlers{Svc: services.Views, Logger: logger}).Get)
	}
	registerPageRoutes(mux, services)

	var handler http.Handler = mux
	if services.Compression != nil {
		cfg := *services.Compression
		if cfg.Logger == nil {
			cfg.Logger = logger
		}
		handler = Compression(cfg)(handler)
	}
	handler = Logging(logger)(handler)
	handler = RequestID()(handler)
	return Recover(logger)(handler)
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers) {
	mux.HandleFunc("POST /api/session/login", h.Login)
	mux.HandleFunc("POST /api/session/logout", h.Logout)
	mux.HandleFunc("GET /api/session", h.Get)
}

func registerBiometricRoutes(mux *http.ServeMux, h *BiometricHandlers) {
	mux.HandleFunc("POST /api/biometric/enroll", h.Enroll)
	mux.HandleFunc("POST /api/biometric/challenge", h.Challenge)
	mux.HandleFunc("POST /api/biometric/login", h.Login)
	mux.HandleFunc("DELETE /api/biometric/devices/{deviceID}", h.Disable)
	mux.HandleFunc("GET /api/biometric/devices/{deviceID}", h.Status)
	if h.Keys != nil {
		mux.HandleFunc("GET /api/biometric/devices/{deviceID}/key", h.PublicKey)
	}
}

func registerMutationRoutes(mux *http.ServeMux, h *MutationHandlers) {
	mux.HandleFunc("POST /api/transfers", h.Transfer)
	mux.HandleFunc("POST /api/bills", h.PayBill)
	mux.HandleFunc("POST /api/savings", h.FundSavings)
	mux.HandleFunc("POST /api/investments", h.Invest)
	mux.HandleFunc("POST /api/beneficiaries", h.AddBeneficiary)
	mux.HandleFunc("POST /api/verification/bvn", h.VerifyBVN)
	mux.HandleFunc("POST /api/verification/pin", h.CreatePIN)
}

func registerRecoveryRoutes(mux *http.ServeMux, h *RecoveryHandlers) {
	mux.HandleFunc("GET /api/recovery", h.State)
	mux.HandleFunc("POST /api/recovery/close", h.Close)
	mux.HandleFunc("POST /api/recovery/retry", h.Retry)
	mux.HandleFunc("POST /api/recovery/fund", h.FundAccount)
}

// registerPageRoutes puts every entry surface behind the root guard and the
// protected zone behind both guards.
func registerPageRoutes(mux *http.ServeMux, services RouterServices) {
	paths := services.Paths
	if paths.Login == "" {
		paths = navigation.DefaultPaths()
	}
	withSession := WithSession(services.Snapshots)
	page := withSession(http.HandlerFunc(pageHandler))
	root := Guard(services.RootGuard)

	for _, surface := range paths.EntrySurfaces {
		pattern := "GET " + surface
		if surface == "/" {
			pattern = "GET /{$}"
		}
		mux.Handle(pattern, root(page))
	}
	if paths.Login != "" && !slices.Contains(paths.EntrySurfaces, paths.Login) {
		mux.Handle("GET "+paths.Login, root(page))
	}

	prefix := paths.ProtectedPrefix
	if prefix == "" || prefix == "/" {
		return
	}
	if prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	mux.Handle("GET "+prefix, root(Guard(services.AreaGuard)(page)))
}
