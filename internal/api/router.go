// Package api is the HTTP boundary of bolod.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/loqalabs/bolo/internal/config"
	"github.com/loqalabs/bolo/internal/pipeline"
	"github.com/loqalabs/bolo/internal/synthesis"
)

// Synthesizer is the server-side synthesis operation.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (synthesis.Audio, error)
}

// Runner executes one pipeline run synchronously.
type Runner interface {
	Run(ctx context.Context, text string) pipeline.Result
}

// Check reports whether one dependency is ready to serve.
type Check struct {
	Name  string
	Ready func() bool
}

// Services are the handlers' collaborators. Nil members leave their routes
// unmounted.
type Services struct {
	Synthesis Synthesizer
	Pipeline  Runner
	Metrics   http.Handler
	Checks    []Check
}

// NewRouter builds the bolod HTTP surface.
func NewRouter(cfg config.HTTPConfig, svc Services, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, logger: logger.With(slog.String("component", "api"))}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	r.Get("/readyz", h.ready)
	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics)
	}

	r.Route("/api", func(ar chi.Router) {
		if cfg.RateLimit > 0 {
			ar.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}
		if svc.Synthesis != nil {
			ar.Post("/tts", h.synthesize)
		}
		if svc.Pipeline != nil {
			ar.Post("/query", h.query)
		}
	})
	return r
}

func (h *handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
