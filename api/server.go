/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind the proxy
  3. Logger:     Structured request logging via zerolog
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/locations/{locationID}/forecasts/{month}/*   Labour forecast grid + workflow
  /api/jobs/{jobNumber}/forecasts/{month}/*          Job forecast workflow
  /api/locations/{locationID}/templates              Template configs
  /api/templates/{templateID}/breakdown              Breakdown preview

SECURITY NOTE:
  No authentication middleware here; the deployment fronts this
  service with a gateway that resolves identity into X-Actor-* headers.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-Id", "X-Actor-Name", "X-Actor-Permissions"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/locations/{locationID}", func(r chi.Router) {
			r.Get("/templates", h.ListTemplateConfigs)

			r.Route("/forecasts/{month}", func(r chi.Router) {
				r.Get("/", h.GetForecast)
				r.Put("/entries", h.SaveEntry)
				r.Post("/fill-right", h.FillRight)
				r.Get("/totals", h.GetTotals)
				r.Get("/cost-codes", h.GetCostCodeRollup)
				r.Get("/export", h.ExportForecast)
				r.Put("/notes", h.UpdateNotes)
				r.Post("/copy-previous", h.CopyFromPreviousMonth)
				r.Put("/templates/{templateID}", h.UpdateTemplateAllowances)
				r.Post("/{transition}", h.Transition)
			})
		})

		r.Route("/jobs/{jobNumber}/forecasts/{month}", func(r chi.Router) {
			r.Get("/", h.GetJobForecast)
			r.Put("/summary", h.UpdateJobSummary)
			r.Post("/{transition}", h.JobTransition)
		})

		r.Get("/templates/{templateID}/breakdown", h.PreviewBreakdown)

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
