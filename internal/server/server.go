// Package server exposes analysis, optimization and cost tracking as a JSON HTTP API.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Veraticus/textlens/internal/budget"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/Veraticus/textlens/internal/session"
)

// Analyzer runs NLU analyses.
type Analyzer interface {
	Run(ctx context.Context, req model.AnalysisRequest, provider string) (*model.AnalysisResult, error)
	LastResult(ctx context.Context) (*model.AnalysisResult, error)
}

// Optimizer rewrites text for target keywords.
type Optimizer interface {
	Optimize(ctx context.Context, req model.OptimizationRequest) (*model.OptimizationOutcome, error)
}

// KeyResolver completes optimization requests with saved settings and API keys.
type KeyResolver interface {
	Resolve(ctx context.Context, req *model.OptimizationRequest) error
}

// CostTracker reports and manages LLM spend.
type CostTracker interface {
	Summaries(ctx context.Context) ([]budget.Summary, error)
	Budget(ctx context.Context, p model.Provider) (model.Budget, error)
	History(ctx context.Context, p model.Provider) ([]model.CostRecord, error)
	SetBudget(ctx context.Context, p model.Provider, amount float64) (model.Budget, error)
	ResetTracking(ctx context.Context, p model.Provider) error
	ResetAll(ctx context.Context) error
}

// Deps contains all dependencies required by the server.
type Deps struct {
	Analyzer  Analyzer
	Optimizer Optimizer
	Keys      KeyResolver
	Costs     CostTracker
	Store     session.Store
	Vault     *session.Vault
	Logger    *slog.Logger
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Analyzer == nil {
		return fmt.Errorf("analyzer dependency is required")
	}
	if d.Optimizer == nil {
		return fmt.Errorf("optimizer dependency is required")
	}
	if d.Keys == nil {
		return fmt.Errorf("key resolver dependency is required")
	}
	if d.Costs == nil {
		return fmt.Errorf("cost tracker dependency is required")
	}
	if d.Store == nil {
		return fmt.Errorf("session store dependency is required")
	}
	if d.Vault == nil {
		return fmt.Errorf("vault dependency is required")
	}
	return nil
}

// Config holds HTTP server settings.
type Config struct {
	Addr           string
	Version        string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	// TLSCertificate switches the server to HTTPS when set.
	TLSCertificate *tls.Certificate
}

// Server serves the JSON API.
type Server struct {
	deps   Deps
	router *chi.Mux
	cfg    Config
}

// New creates a server with routes registered.
func New(deps Deps, cfg Config) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RequestTimeout == 0 {
		// LLM calls alone may take the full client timeout.
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	s := &Server{
		deps:   deps,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/analyze", s.handleAnalyze)
		r.Get("/analyze/last", s.handleLastAnalysis)
		r.Post("/optimize", s.handleOptimize)
		r.Post("/keywords/status", s.handleKeywordStatus)

		r.Route("/costs", func(r chi.Router) {
			r.Get("/", s.handleCostSummaries)
			r.Delete("/", s.handleResetAllCosts)
			r.Get("/{provider}", s.handleProviderCosts)
			r.Put("/{provider}/budget", s.handleSetBudget)
			r.Delete("/{provider}", s.handleResetProviderCosts)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})
}

// requestLogger logs each request with slog once the response is written.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.deps.Logger.Info("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	if s.cfg.TLSCertificate != nil {
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.cfg.TLSCertificate},
			MinVersion:   tls.VersionTLS12,
		}
	}

	go func() {
		if srv.TLSConfig != nil {
			s.deps.Logger.Info("Starting API server", "addr", s.cfg.Addr, "tls", true)
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		s.deps.Logger.Info("Starting API server", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.deps.Logger.Info("Shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
