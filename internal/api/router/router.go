package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sellerhub/backend/internal/api/handlers"
	"github.com/sellerhub/backend/internal/api/middleware"
	"github.com/sellerhub/backend/internal/config"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/metrics"
)

// Handlers collects everything the router mounts
type Handlers struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Account   *handlers.AccountHandler
	Dashboard *handlers.DashboardHandler
}

// New builds the HTTP router
func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(middleware.RateLimit(50, 100))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)
		r.Handle("/metrics", metrics.Handler())

		r.Post("/api/v1/auth/login", h.Auth.Login)
		r.Post("/api/v1/auth/logout", h.Auth.Logout)

		// The marketplace redirects the browser here after consent
		r.Get("/api/v1/accounts/callback", h.Account.Callback)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.Auth.JWTSecret))

		r.Route("/api/v1/accounts", func(r chi.Router) {
			r.Get("/", h.Account.List)
			r.Post("/connect", h.Account.Connect)
			r.Post("/callback", h.Account.Callback)
			r.Post("/sync", h.Account.SyncAll)
			r.Get("/status", h.Account.Statuses)
			r.Delete("/{id}", h.Account.Disconnect)
			r.Post("/{id}/sync", h.Account.Sync)
			r.Get("/{id}/status", h.Account.Status)
			r.Get("/{id}/data", h.Account.Data)
		})

		r.Get("/api/v1/dashboard/metrics", h.Dashboard.Metrics)
	})

	return r
}
