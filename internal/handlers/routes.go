package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gdlist/list-api/internal/ratelimit"
)

// RouterConfig configures the HTTP router
type RouterConfig struct {
	AllowedOrigins []string
	Limiter        *ratelimit.KeyedRateLimiter
	RequestTimeout time.Duration
}

// Routes builds the API router
func (h *Handler) Routes(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		if cfg.Limiter != nil {
			r.Use(h.RateLimitMiddleware(cfg.Limiter))
		}

		r.Get("/list", h.GetList)
		r.Get("/list/{rank}", h.GetLevel)
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Get("/leaderboard/{user}", h.GetPlayer)
		r.Get("/editors", h.GetEditors)
		r.Post("/refresh", h.Refresh)
	})

	return r
}
