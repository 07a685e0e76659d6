package router

import (
	"net/http"

	"stocktrack-api/internal/handler"
	"stocktrack-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	StockHandler    *handler.StockHandler
	OutboundHandler *handler.OutboundHandler
	AdminHandler    *handler.AdminHandler
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	AuthMiddleware  func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// PUBLIC routes (no auth required)
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}
		if cfg.AuthHandler != nil {
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		// AUTHENTICATED routes
		r.Group(func(r chi.Router) {
			if cfg.AuthMiddleware != nil {
				r.Use(cfg.AuthMiddleware)
			}

			if cfg.AuthHandler != nil {
				r.Post("/auth/logout", cfg.AuthHandler.Logout)
			}

			// Stock items: anyone logged in can record and browse
			if cfg.StockHandler != nil {
				r.Route("/stock-items", func(r chi.Router) {
					r.Post("/", cfg.StockHandler.Create)
					r.Get("/", cfg.StockHandler.List)
					r.Get("/{id}", cfg.StockHandler.Get)
				})
			}

			// Outbound requests: creation and browsing
			if cfg.OutboundHandler != nil {
				r.Route("/outbound-requests", func(r chi.Router) {
					r.Post("/", cfg.OutboundHandler.Create)
					r.Get("/", cfg.OutboundHandler.List)
					r.Get("/{id}", cfg.OutboundHandler.Get)
				})
			}

			// ADMIN routes: approvals, deletions, stats, users
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				if cfg.StockHandler != nil {
					r.Post("/stock-items/{id}/approve", cfg.StockHandler.Approve)
					r.Post("/stock-items/{id}/reject", cfg.StockHandler.Reject)
					r.Delete("/stock-items/{id}", cfg.StockHandler.Delete)
				}

				if cfg.OutboundHandler != nil {
					r.Post("/outbound-requests/{id}/approve", cfg.OutboundHandler.Approve)
					r.Post("/outbound-requests/{id}/reject", cfg.OutboundHandler.Reject)
					r.Delete("/outbound-requests/{id}", cfg.OutboundHandler.Delete)
				}

				r.Route("/admin", func(r chi.Router) {
					if cfg.AdminHandler != nil {
						r.Get("/stats", cfg.AdminHandler.GetStats)
					}
					if cfg.UserHandler != nil {
						r.Get("/users", cfg.UserHandler.List)
					}
				})
			})
		})
	})

	return r
}
