package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Strokes/internal/analysis"
	"github.com/MikeSquared-Agency/Strokes/internal/hermes"
	"github.com/MikeSquared-Agency/Strokes/internal/profile"
	"github.com/MikeSquared-Agency/Strokes/internal/session"
)

type Options struct {
	DefaultArchetype  profile.Archetype
	RequestsPerMinute int
	Burst             int
	AllowedOrigins    []string
}

func NewRouter(m *session.Manager, a *analysis.Analyzer, events *hermes.Emitter, opts Options, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(CORSMiddleware(opts.AllowedOrigins))
	if opts.RequestsPerMinute > 0 {
		r.Use(RateLimitMiddleware(opts.RequestsPerMinute, opts.Burst))
	}

	prof := NewProfileHandler(m.Profile(), m.Rebalancer().Epsilon())
	sessions := NewSessionsHandler(m, a, events, opts.DefaultArchetype, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/profile", prof.Get)

		r.Post("/sessions", sessions.Create)
		r.Get("/sessions", sessions.List)
		r.Get("/sessions/{id}", sessions.Get)
		r.Delete("/sessions/{id}", sessions.Delete)
		r.Put("/sessions/{id}/values/{key}", sessions.SetValue)
		r.Post("/sessions/{id}/preset", sessions.LoadPreset)
		r.Get("/sessions/{id}/score", sessions.Score)
		r.Post("/sessions/{id}/analysis", sessions.Analyze)
	})

	return r
}

func NewEngineRouter(logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))

	engine := NewEngineHandler(logger)
	r.Post("/calculate", engine.Calculate)
	r.Get("/health", engine.Health)

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
