// Package web provides the HTTP server and handlers for detecting,
// converting and importing tabular data.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/plusplusco/rows/internal/adapter/pgxio"
	"github.com/plusplusco/rows/internal/config"
	"github.com/plusplusco/rows/internal/metric"
	"github.com/plusplusco/rows/internal/table"
	"github.com/plusplusco/rows/internal/web/middleware"
)

// Server is the HTTP server for the conversion service.
type Server struct {
	cfg     *config.Config
	opts    table.Options
	db      pgxio.DB
	metrics *metric.Metrics
	limiter *Limiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. opts are the default table options; db and
// m may be nil, which disables import and metrics respectively.
func NewServer(cfg *config.Config, opts table.Options, db pgxio.DB, m *metric.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		opts:    opts,
		db:      db,
		metrics: m,
		limiter: NewLimiter(cfg.Server.MaxConcurrent, cfg.Server.MaxWaitTime, m),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security.APIKeys))

		r.Get("/types", s.handleTypes)

		// Body-reading routes share the conversion slots
		r.Group(func(r chi.Router) {
			r.Use(chimw.RequestSize(s.cfg.Server.MaxBodySize))
			r.Use(s.limiter.Middleware(s))

			r.Post("/detect", s.handleDetect)
			r.Post("/convert", s.handleConvert)
			r.Post("/import/{table}", s.handleImport)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight
// conversions to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// pinger is implemented by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth reports liveness and, when a database is configured,
// whether it answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "database": "disabled"}
	status := http.StatusOK

	if s.db != nil {
		resp["database"] = "ok"
		if p, ok := s.db.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				slog.Warn("database ping failed", "error", err)
				resp["status"] = "degraded"
				resp["database"] = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}
	}
	writeJSON(w, status, resp)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Converted HTML tables carry no scripts or external resources
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'self' 'unsafe-inline'")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
