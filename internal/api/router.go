package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zzstoatzz/slackbot/internal/api/middleware"
	"github.com/zzstoatzz/slackbot/internal/handlers"
)

// NewRouter creates and configures the HTTP router.
//
// The event endpoint sits behind signature verification; everything else
// is public. Slack is the only caller of /chat, so there is no CORS layer.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, signingSecret []byte) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Liveness and health
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Event webhook (signature required)
	r.Group(func(r chi.Router) {
		r.Use(middleware.VerifySignature(signingSecret, logger))
		r.Post("/chat", h.HandleEvent)
	})

	return r
}
