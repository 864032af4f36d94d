package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Admissions/internal/config"
	"github.com/MikeSquared-Agency/Admissions/internal/hermes"
	"github.com/MikeSquared-Agency/Admissions/internal/ranking"
	"github.com/MikeSquared-Agency/Admissions/internal/spreadsheet"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

func NewRouter(s store.Store, svc *ranking.Service, h hermes.Client, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))
	if len(cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	periods := NewPeriodsHandler(s, svc, h, logger)
	criteria := NewCriteriaHandler(s, svc, h, logger)
	candidates := NewCandidatesHandler(s, svc, h, spreadsheet.Options{
		Sheet:   cfg.Import.Sheet,
		MaxRows: cfg.Import.MaxRows,
	}, logger)
	rankings := NewRankingHandler(svc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/periods", periods.List)
		r.Get("/periods/{id}", periods.Get)
		r.Get("/periods/{id}/criteria", criteria.List)
		r.Get("/periods/{id}/candidates", candidates.List)
		r.Get("/periods/{id}/candidates/export", candidates.Export)
		r.Get("/periods/{id}/ranking", rankings.Get)
		r.Get("/periods/{id}/ranking/export", rankings.Export)
		r.Get("/candidates/{id}", candidates.Get)
		r.Post("/rank", rankings.Rank)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))

			r.Post("/periods", periods.Create)
			r.Delete("/periods/{id}", periods.Delete)
			r.Put("/periods/{id}/weights", periods.UpdateWeights)

			r.Post("/periods/{id}/criteria", criteria.Create)
			r.Patch("/criteria/{id}", criteria.Update)
			r.Delete("/criteria/{id}", criteria.Delete)

			r.Post("/periods/{id}/candidates", candidates.Create)
			r.Post("/periods/{id}/candidates/import", candidates.Import)
			r.Put("/candidates/{id}", candidates.Update)
			r.Delete("/candidates/{id}", candidates.Delete)
		})
	})

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
