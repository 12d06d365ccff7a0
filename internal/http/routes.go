package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Identity IdentityService

	BaseURL      string // public base URL for verification links
	CookieDomain string
	CORSOrigin   string // empty means "*"

	HealthChecks   map[string]HealthCheck
	MetricsHandler http.Handler // optional; mounted at MetricsPath
	MetricsPath    string

	Logger *slog.Logger
	Now    func() time.Time
}

// NewRouter creates the HTTP handler with logging, panic recovery and CORS applied.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	discord := &DiscordAuthHandlers{Svc: services.Identity, BaseURL: services.BaseURL, Logger: logger}
	sessions := &SessionHandlers{
		Svc:          services.Identity,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
		Now:          services.Now,
	}

	mux.Handle("/api/discord-auth", discord)
	registerSessionRoutes(mux, sessions, services.Identity)

	health := healthHandler(services.HealthChecks)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	if services.MetricsHandler != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, services.MetricsHandler)
	}

	var h http.Handler = mux
	h = CORS(services.CORSOrigin)(h)
	h = Recover(logger)(h)
	h = Logging(logger)(h)
	return h
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers, svc IdentityService) {
	mux.HandleFunc("GET /auth/verify", h.Verify)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.Handle("GET /api/me", RequireAccess(svc)(http.HandlerFunc(h.Me)))
	mux.Handle("GET /api/members", RequireAdmin(svc)(http.HandlerFunc(h.Members)))
}
