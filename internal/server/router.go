package server

import (
	"net/http"

	"github.com/cinevault/api/internal/metrics"
	"github.com/cinevault/api/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(h *Handler, limiter *ratelimit.Limiter, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         86400,
		}))
	}

	r.Use(ratelimit.Middleware(limiter))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Telegram webhook
	r.Post("/webhook", h.Webhook)

	// Public catalog API
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/search", h.Search)
		r.Get("/latest", h.Latest)
		r.Get("/browse/{category}", h.Browse)
		r.Get("/movie/{slug}", h.Movie)
	})

	return r
}
