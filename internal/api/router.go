package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AgentMesh-Net/directory-go/internal/config"
	"github.com/AgentMesh-Net/directory-go/internal/registry"
)

// NewRouter creates the HTTP router with all v1 endpoints.
func NewRouter(svc *registry.Service, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	h := &handlers{svc: svc, cfg: cfg}

	r.Get("/v1/health", h.GetHealth)
	r.Get("/v1/meta", h.GetMeta)

	r.Route("/v1/agents", func(r chi.Router) {
		r.Get("/", h.SearchAgents)
		r.Get("/count", h.CountAgents)
	})

	r.Route("/v1/cache", func(r chi.Router) {
		r.Get("/stats", h.GetCacheStats)
		r.Post("/clear", h.PostCacheClear)
		r.Post("/cleanup", h.PostCacheCleanup)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

type handlers struct {
	svc *registry.Service
	cfg config.Config
}
