package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth     AuthServiceInterface
	Gate     GateInterface
	Recovery RecoveryInterface
	// Upstream receives gated traffic. When nil a whoami handler is served.
	Upstream  http.Handler
	Readiness []ReadinessCheck

	ServiceURL   string
	CookieDomain string
	ProxyDomain  string
	Logger       *slog.Logger
}

// NewRouter wires the auth endpoints, health check and gated application.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recovery := &TicketRecovery{
		Policy:       services.Recovery,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}
	if services.Recovery == nil {
		recovery = nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Readiness))

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		Recovery:     recovery,
		ServiceURL:   services.ServiceURL,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}
	registerAuthRoutes(mux, authHandlers)

	app := services.Upstream
	if app == nil {
		app = http.HandlerFunc(whoamiHandler)
	}
	mux.Handle("/", Gate(GateConfig{
		Gate:         services.Gate,
		Recovery:     recovery,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	})(app))

	var handler http.Handler = mux
	handler = BrowserDetection()(handler)
	handler = ProxyHost(services.ProxyDomain)(handler)
	handler = Recover(logger)(handler)
	return Logging(logger)(handler)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("GET /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}
