// Package api exposes the engine over an admin HTTP API built on chi.
//
// Routes:
//
//	GET  /healthz
//	POST /v1/topics/{topic}/messages
//	GET  /v1/dlq
//	GET  /v1/dlq/stats
//	GET  /v1/dlq/alerts
//	POST /v1/dlq/replay
//	POST /v1/dlq/replay/topic/{topic}
//	POST /v1/dlq/replay/window
//	POST /v1/jobs/{name}
//	GET  /v1/jobs/{name}/{jobId}
//	POST /v1/jobs/{name}/{jobId}/cancel
//
// The caller is identified by the X-User-ID header, which is passed to
// the engine's feature-flag check.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/conveyor/engine"
)

// UserHeader carries the user ID used for feature-flag checks.
const UserHeader = "X-User-ID"

// Option configures an API.
type Option func(*API)

// WithTimeout sets the per-request timeout. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(a *API) { a.timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// API serves the admin endpoints for an Engine.
type API struct {
	eng     *engine.Engine
	logger  *slog.Logger
	timeout time.Duration
}

// New creates an API over eng.
func New(eng *engine.Engine, opts ...Option) *API {
	a := &API{eng: eng, logger: eng.Logger(), timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok")) //nolint:errcheck // best effort
	})

	r.Route("/v1", a.RegisterRoutes)
	return r
}

// RegisterRoutes registers the /v1 routes on r.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/topics/{topic}/messages", a.produce)

	r.Route("/dlq", func(r chi.Router) {
		r.Get("/", a.listDLQ)
		r.Get("/stats", a.dlqStats)
		r.Get("/alerts", a.dlqAlerts)
		r.Post("/replay", a.replayDLQ)
		r.Post("/replay/topic/{topic}", a.replayDLQTopic)
		r.Post("/replay/window", a.replayDLQWindow)
	})

	r.Route("/jobs/{name}", func(r chi.Router) {
		r.Post("/", a.sendJob)
		r.Get("/{jobId}", a.getJob)
		r.Post("/{jobId}/cancel", a.cancelJob)
	})
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func userID(r *http.Request) string { return r.Header.Get(UserHeader) }
