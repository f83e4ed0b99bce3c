package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shindakun/loginform/internal/config"
	webmiddleware "github.com/shindakun/loginform/internal/web/middleware"
)

// Routes builds the application router. limiter may be nil to leave login
// posts unlimited.
func (h *Handlers) Routes(cfg *config.Config, limiter *webmiddleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(webmiddleware.LoggingMiddleware(h.logger))
	r.Use(webmiddleware.Recoverer(h.logger))
	r.Use(webmiddleware.SecurityHeaders(cfg))
	r.Use(webmiddleware.MaxBytesMiddleware(cfg.Server.Security.MaxRequestBytes))
	r.Use(webmiddleware.Metrics(h.metrics))
	if cfg.Server.Security.CSRFEnabled {
		r.Use(webmiddleware.CSRFProtection(
			[]byte(cfg.Session.Secret),
			cfg.CookieSecure(),
			cfg.Server.Security.CSRFFieldName,
		))
	}

	// Public routes
	r.Get("/", h.Landing)
	r.Get("/healthz", h.Healthz)
	if cfg.Server.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	// Auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", h.LoginForm)
		if limiter != nil {
			r.With(limiter.Middleware).Post("/login", h.LoginSubmit)
		} else {
			r.Post("/login", h.LoginSubmit)
		}
		r.Get("/logout", h.Logout)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(webmiddleware.RequireAuth(h.sessionManager))
		r.Get("/{username}/", h.Home)
	})

	// 404 handler (must be last)
	r.NotFound(h.NotFound)

	return r
}
