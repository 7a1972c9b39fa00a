// Package api exposes the HTTP interface for the lead engine.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/config"
	"github.com/readyrobots/leadengine/internal/dispatcher"
	"github.com/readyrobots/leadengine/internal/health"
	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/metrics"
	"github.com/readyrobots/leadengine/internal/registry"
	"github.com/readyrobots/leadengine/internal/scoring"
	"github.com/readyrobots/leadengine/internal/search"
	"github.com/readyrobots/leadengine/internal/store"
)

// Deps collects everything the handlers reach.
type Deps struct {
	Registry   *registry.Service
	Dispatcher *dispatcher.Dispatcher
	Monitor    *health.Monitor
	Search     *search.Service
	Scoring    *scoring.Service
	Normalizer *ingest.Normalizer
	Companies  store.CompanyStore
	Signals    store.SignalStore
	Scores     store.ScoreStore
}

// Server wires HTTP handlers to the pipeline services.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    config.Config
	log    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, log *zap.Logger) *Server {
	s := &Server{deps: deps, cfg: cfg, log: log.Named("api")}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}

		r.Route("/scrape", func(r chi.Router) {
			r.Post("/trigger", s.triggerScrape)
			r.Get("/health", s.scraperHealth)
			r.Post("/health/reset", s.resetHealth)
		})
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.listLeads)
			r.Get("/summary", s.leadsSummary)
			r.Get("/{company_id}", s.getLead)
		})
		r.Route("/search", func(r chi.Router) {
			r.Get("/", s.search)
			r.Get("/categories", s.searchCategories)
		})
		r.Route("/scores", func(r chi.Router) {
			r.Post("/recompute", s.recomputeAll)
			r.Post("/recompute/{company_id}", s.recomputeCompany)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Post("/targets/import", s.importTargets)
			r.Get("/targets", s.listTargets)
			r.Post("/targets/{target_id}/active", s.setTargetActive)
			r.Post("/companies/import", s.importCompanies)
			r.Get("/stats", s.stats)
		})
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
	// The stores back every endpoint; a cheap read proves them reachable.
	if _, err := s.deps.Companies.ListCompanies(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		s.log.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", zap.Any("error", rec))
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

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
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

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
