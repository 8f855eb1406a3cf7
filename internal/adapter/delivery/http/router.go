// Package http provides the HTTP delivery layer of the shortener: the JSON
// management API under /api/v1, the public /{code} redirect, health, metrics
// and API docs.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/vadimbarashkov/shortener/docs"
	"github.com/vadimbarashkov/shortener/pkg/middleware/recoverer"
)

type routerOptions struct {
	healthChecker  healthChecker
	recorder       requestRecorder
	metricsHandler http.Handler
	version        string
	startedAt      time.Time
}

type RouterOption func(*routerOptions)

// WithHealthChecker enables GET /health.
func WithHealthChecker(hc healthChecker) RouterOption {
	return func(o *routerOptions) {
		o.healthChecker = hc
	}
}

// WithMetrics instruments every request with rec and serves h on GET /metrics.
func WithMetrics(rec requestRecorder, h http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.recorder = rec
		o.metricsHandler = h
	}
}

// WithVersion sets the version reported by GET /health.
func WithVersion(v string) RouterOption {
	return func(o *routerOptions) {
		o.version = v
	}
}

// NewRouter initializes a chi router with middleware and all routes.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts ...RouterOption) *chi.Mux {
	o := routerOptions{
		version:   "dev",
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))
	if o.recorder != nil {
		r.Use(instrument(o.recorder))
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.Swagger)
	})

	if o.healthChecker != nil {
		r.Get("/health", handleHealth(o.healthChecker, o.version, o.startedAt))
	}

	if o.metricsHandler != nil {
		r.Handle("/metrics", o.metricsHandler)
	}

	h := newURLHandler(urlUseCase)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", h.createURL)
			r.Get("/", h.listURLs)
			r.Get("/code/{code}", h.getURLByCode)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getURL)
				r.Patch("/", h.updateURL)
				r.Delete("/", h.deleteURL)
			})
		})
	})

	r.Get("/{code}", h.redirect)

	return r
}
