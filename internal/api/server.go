// Package api exposes the HTTP status surface for the research service.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nichescout/internal/discovery"
	"nichescout/internal/metrics"
	"nichescout/internal/research"
	"nichescout/internal/throttle"
)

// Server publishes run results, throttle state, and health endpoints.
type Server struct {
	router   chi.Router
	store    research.ProductStore
	registry *throttle.Registry
	logger   *zap.Logger

	mu     sync.RWMutex
	latest *discovery.Outcome
}

// NewServer constructs a Server with middleware and routes. Store may be
// nil; /v1/products then serves only the in-memory snapshot.
func NewServer(store research.ProductStore, registry *throttle.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    store,
		registry: registry,
		logger:   logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/results", s.getResults)
		r.Get("/products", s.getProducts)
		r.Get("/throttle", s.getThrottle)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetOutcome publishes the latest run outcome for /v1/results.
func (s *Server) SetOutcome(outcome discovery.Outcome) {
	s.mu.Lock()
	s.latest = &outcome
	s.mu.Unlock()
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// getResults serves the most recent run held in memory.
func (s *Server) getResults(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest == nil {
		writeError(w, http.StatusNotFound, "no run completed yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":      latest.Run,
		"products": latest.Products,
	})
}

// getProducts serves the persisted leaderboard.
func (s *Server) getProducts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "persistence is disabled")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	products, err := s.store.TopProducts(r.Context(), limit)
	if err != nil {
		s.logger.Error("top products query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch products")
		return
	}
	if products == nil {
		products = []research.ScoredProduct{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// getThrottle reports per-domain limiter and breaker state.
func (s *Server) getThrottle(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		writeJSON(w, http.StatusOK, map[string]any{"domains": map[string]any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": s.registry.Stats()})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
