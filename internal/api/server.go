// Package api exposes the service's inbound HTTP surface: the
// health/introspection endpoint, Prometheus metrics, and a read-only jobs
// API. Nothing here mutates a job; uploads and status polling belong to the
// separate front-end service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/katsurao/ocrflow/internal/store"
)

// Pipeline is the supervisor view the health endpoint reports on.
type Pipeline interface {
	Running() bool
	QueueDepth() int
}

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store    *store.Store
	pipeline Pipeline
}

// NewServer creates a Server over the store and the dispatch pipeline.
func NewServer(s *store.Store, p Pipeline) *Server {
	return &Server{store: s, pipeline: p}
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Security headers first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// The surface is read-only; a small body limit is plenty.
	r.Use(middleware.RequestSize(1 << 16))
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", srv.healthzHandler)
	r.Handle("/metrics", promhttp.Handler())

	// ── Read-only jobs API (huma, OpenAPI 3.1) ───────────────────────────────
	apiRouter := chi.NewRouter()
	humaConfig := huma.DefaultConfig("ocrflow API", "0.1.0")
	humaConfig.Info.Description = "Read-only introspection over the OCR dispatch pipeline"
	registerJobRoutes(humachi.New(apiRouter, humaConfig), srv.store)
	r.Mount("/api/v1", apiRouter)

	return r
}

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status    string `json:"status"`
	QueueSize int    `json:"queue_size"`
	Running   bool   `json:"running"`
	DB        string `json:"db,omitempty"`
}

// healthzHandler reports pipeline liveness and queue depth. Returns 200
// {"status":"ok",...} normally, 503 with "degraded" when the database is
// unreachable or the pipeline is down. Read-only, no side effects.
func (srv *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		QueueSize: srv.pipeline.QueueDepth(),
		Running:   srv.pipeline.Running(),
	}
	statusCode := http.StatusOK

	if err := srv.store.Pool().Ping(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
		resp.Status = "degraded"
		resp.DB = "unavailable"
		statusCode = http.StatusServiceUnavailable
	} else if !resp.Running {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "healthz: encode response", "error", err)
	}
}
