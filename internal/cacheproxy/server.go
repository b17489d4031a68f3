package cacheproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/kv"
	"github.com/govreposcrape/ingestor/internal/logging"
	"github.com/govreposcrape/ingestor/internal/metrics"
)

// keyPrefix namespaces cache entries within the shared KV store so future
// bindings (locks, dead letters) can coexist under the same store.
const keyPrefix = "item:"

// requestTimeout bounds every request; KV round trips are small and fast.
const requestTimeout = 30 * time.Second

// Server wires HTTP handlers to the key-value binding holding cache entries.
type Server struct {
	router   chi.Router
	store    kv.Store
	counters *Counters
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store kv.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	s := &Server{
		store:    store,
		counters: &Counters{},
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", s.getStats)
		r.Get("/{owner}/{name}", s.checkEntry)
		r.Put("/{owner}/{name}", s.putEntry)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// Probe the store so a dead Redis or Postgres flips readiness.
	if _, err := s.store.Get(r.Context(), keyPrefix+"readyz-probe"); err != nil && !errors.Is(err, kv.ErrNotFound) {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) checkEntry(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")
	pushedAt := r.URL.Query().Get("pushedAt")
	if pushedAt == "" {
		writeError(w, http.StatusBadRequest, "pushedAt query parameter required")
		return
	}

	raw, err := s.store.Get(r.Context(), entryKey(owner, name))
	if errors.Is(err, kv.ErrNotFound) {
		s.answerCheck(w, ingest.CacheCheckResult{NeedsProcessing: true, Reason: ingest.ReasonNoEntry})
		return
	}
	if err != nil {
		s.logger.Error("cache entry read failed",
			zap.String("owner", owner),
			zap.String("name", name),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "cache read failed")
		return
	}

	var entry ingest.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry reads as absent so the item gets reprocessed and
		// the next write repairs it.
		s.logger.Warn("cache entry corrupt",
			zap.String("owner", owner),
			zap.String("name", name),
			zap.Error(err),
		)
		s.answerCheck(w, ingest.CacheCheckResult{NeedsProcessing: true, Reason: ingest.ReasonNoEntry})
		return
	}

	if entry.PushedAt == pushedAt && entry.Status == ingest.StatusComplete {
		s.answerCheck(w, ingest.CacheCheckResult{Reason: ingest.ReasonHit, CachedEntry: &entry})
		return
	}
	s.answerCheck(w, ingest.CacheCheckResult{NeedsProcessing: true, Reason: ingest.ReasonStale, CachedEntry: &entry})
}

// answerCheck records the outcome in the aggregate counters and Prometheus
// before replying. Only evaluated checks count; 4xx/5xx never reach here.
func (s *Server) answerCheck(w http.ResponseWriter, result ingest.CacheCheckResult) {
	if result.Reason == ingest.ReasonHit {
		s.counters.RecordHit()
	} else {
		s.counters.RecordMiss()
	}
	metrics.ObserveProxyCheck(string(result.Reason))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) putEntry(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")

	var entry ingest.CacheEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if entry.PushedAt == "" {
		writeError(w, http.StatusBadRequest, "pushedAt required")
		return
	}
	if entry.Status == "" {
		entry.Status = ingest.StatusComplete
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode entry failed")
		return
	}
	if err := s.store.Put(r.Context(), entryKey(owner, name), raw); err != nil {
		s.logger.Error("cache entry write failed",
			zap.String("owner", owner),
			zap.String("name", name),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "cache write failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.counters.Snapshot())
}

func entryKey(owner, name string) string {
	return fmt.Sprintf("%s%s/%s", keyPrefix, owner, name)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveProxyRequest(r.Method, routePattern, ww.status, time.Since(start))
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

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.L.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
