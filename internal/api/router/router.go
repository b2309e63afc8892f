package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wxsales/copilot/internal/api/handlers"
	"github.com/wxsales/copilot/internal/http/middleware"
	"github.com/wxsales/copilot/internal/ratelimit"
	"github.com/wxsales/copilot/pkg/logging"
)

// Options carries the cross-cutting pieces the route table needs.
type Options struct {
	Logger         *logging.Logger
	Limiter        *ratelimit.Limiter
	AdminJWTSecret string
	AllowedOrigins []string
	MetricsReg     *prometheus.Registry
}

// New builds the full route table.
func New(h *handlers.Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.Get("/healthz", h.Health)
	if opts.MetricsReg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.MetricsReg, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.Limiter != nil {
				r.Use(middleware.RateLimit(opts.Limiter))
			}
			r.Post("/generate", h.Generate)
		})

		r.Post("/labels", h.IngestLabels)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Get("/{id}", h.GetTask)
			r.Post("/{id}/sent", h.MarkTaskSent)
		})

		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", h.ListSuggestions)
			r.Get("/stats", h.VariantStats)
			r.Post("/{id}/select", h.SelectSuggestion)
			r.Post("/{id}/edit", h.EditSuggestion)
		})
		r.Post("/feedback", h.RecordFeedback)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Get("/active", h.GetActiveProfile)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminAuth(opts.AdminJWTSecret))
				r.Post("/", h.CreateProfile)
				r.Put("/{id}", h.UpdateProfile)
				r.Post("/{id}/activate", h.ActivateProfile)
			})
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/search", h.SearchKnowledge)
			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminAuth(opts.AdminJWTSecret))
				r.Post("/", h.AddChunk)
			})
		})
	})

	return r
}
