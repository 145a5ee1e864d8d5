package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/api/handler"
	apimw "github.com/notifyhub/mail-dispatcher/internal/api/middleware"
	"github.com/notifyhub/mail-dispatcher/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.EmailService,
	health handler.HealthCheck,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	eh := handler.NewEmailHandler(svc, logger)
	qh := handler.NewQueueHandler(svc, logger)
	hh := handler.NewHealthHandler(health)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1/emails", func(r chi.Router) {
		r.Post("/send", eh.Send)
		r.Post("/send/{category}", eh.SendCategory)
		r.Post("/batch", eh.SendBatch)

		r.Get("/stats", qh.Stats)
		r.Get("/usage", qh.Usage)
		r.Get("/routes", qh.Routes)

		r.Route("/queues/{category}", func(r chi.Router) {
			r.Post("/pause", qh.Pause)
			r.Post("/resume", qh.Resume)
			r.Post("/clean", qh.Clean)
			r.Get("/jobs/{id}", qh.GetJob)
		})
	})

	return r
}
