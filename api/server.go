/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontends

ROUTE GROUPS:
  /api/labels      Loaded label table
  /api/batches/*   Batch generation, retrieval and QC
  /healthz         Liveness

SECURITY NOTE:
  No authentication middleware. Run behind a gateway if exposed.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/labels", h.ListLabels)

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", h.ListBatches)
			r.Post("/", h.GenerateBatch)
			r.Get("/{id}", h.GetBatch)
			r.Get("/{id}/file", h.DownloadBatchFile)
			r.Post("/{id}/qc", h.ValidateBatch)
			r.Get("/{id}/qc", h.GetQCResults)
		})
	})

	r.Get("/healthz", h.Healthz)

	return r
}
