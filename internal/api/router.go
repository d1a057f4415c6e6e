package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/api/middleware"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/chatsync"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/handlers"
)

// NewRouter creates and configures the HTTP router exposing the sync
// engine to the UI layer.
func NewRouter(logger zerolog.Logger, engine *chatsync.Engine, db, rt handlers.Pinger) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - the UI is a browser client served elsewhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(engine, db, rt, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	// Session directory
	r.Get("/sessions", h.ListSessions)
	r.Post("/sessions/refresh", h.RefreshSessions)
	r.Post("/session/{id}/activate", h.ActivateSession)
	r.Post("/session/{id}/read", h.MarkSessionRead)

	// Active session timeline
	r.Get("/messages", h.GetMessages)
	r.Post("/messages", h.SendMessage)
	r.Patch("/message/{id}", h.EditMessage)
	r.Delete("/message/{id}", h.DeleteMessage)

	return r
}
