package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stratumhq/stratum/internal/api"
	"github.com/stratumhq/stratum/internal/api/handlers"
	"github.com/stratumhq/stratum/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator middleware.AuthValidator
	QueryHandler  *handlers.QueryHandler
	EntryHandler  *handlers.EntryHandler
	ScopeHandler  *handlers.ScopeHandler
	AuthHandler   *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/query", cfg.QueryHandler.Query)

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.EntryHandler.Create)
			r.Get("/{id}", cfg.EntryHandler.Get)
			r.Put("/{id}", cfg.EntryHandler.Update)
			r.Delete("/{id}", cfg.EntryHandler.Deactivate)
			r.Get("/{id}/versions", cfg.EntryHandler.Versions)
			r.Post("/{id}/relations", cfg.EntryHandler.Relate)
		})

		r.Route("/scopes", func(r chi.Router) {
			r.Post("/", cfg.ScopeHandler.Create)
			r.Get("/", cfg.ScopeHandler.List)
			r.Get("/{id}", cfg.ScopeHandler.Get)
			r.Get("/{id}/children", cfg.ScopeHandler.ListChildren)
			r.Delete("/{id}", cfg.ScopeHandler.Delete)
		})

		r.Route("/apikeys", func(r chi.Router) {
			r.Post("/", cfg.AuthHandler.CreateAPIKey)
			r.Get("/", cfg.AuthHandler.ListAPIKeys)
			r.Delete("/{id}", cfg.AuthHandler.RevokeAPIKey)
		})
	})

	return r
}
