/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/sources/*         Snapshot replacement for the five input relations
  /api/grid              Status pivot
  /api/dashboard         Totals + anomaly flags
  /api/anomalies         Classified worked-hours cells
  /api/pending           Unresolved chargeable days
  /api/justifications/*  Justification mutation surface
  /metrics               Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. Session handling is a host concern, not
  part of the engine.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Input snapshot routes
		r.Route("/sources", func(r chi.Router) {
			r.Put("/entries", h.ReplaceEntries)
			r.Put("/roster", h.ReplaceRoster)
			r.Put("/lifecycle", h.ReplaceLifecycle)
			r.Put("/leaves", h.ReplaceLeaves)
			r.Put("/calendar", h.ReplaceCalendar)
		})

		// Report routes
		r.Get("/grid", h.GetGrid)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/anomalies", h.GetAnomalies)
		r.Get("/pending", h.GetPending)

		// Justification routes
		r.Route("/justifications", func(r chi.Router) {
			r.Get("/", h.ListJustifications)
			r.Post("/", h.AppendJustification)
			r.Put("/{position}", h.EditJustification)
			r.Delete("/{position}", h.DeleteJustification)
		})
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
