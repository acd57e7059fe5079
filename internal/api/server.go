// Package api exposes the HTTP surface of the screening service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-welfare/kestrel/internal/auth"
	"github.com/opensource-welfare/kestrel/internal/domain"
	"github.com/opensource-welfare/kestrel/internal/engine"
	"github.com/opensource-welfare/kestrel/internal/metrics"
	"github.com/opensource-welfare/kestrel/internal/rules"
	"github.com/prometheus/client_golang/prometheus"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// ServerDeps bundles the components the server wires together.
type ServerDeps struct {
	Repo    domain.Repository
	Cache   domain.Cache
	Bus     domain.EventBus
	Engine  *engine.Engine
	Custom  *rules.CustomEngine
	Auth    *auth.Service
	Metrics metrics.Recorder
	// Gatherer serves GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Version  string
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, authCfg domain.AuthConfig, deps ServerDeps) *Server {
	handler := NewHandler(deps.Repo, deps.Cache, deps.Bus, deps.Engine, deps.Custom, deps.Auth, deps.Version)
	router := chi.NewRouter()

	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Noop{}
	}

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(MetricsMiddleware(rec)) // Prometheus request metrics
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression
	router.Use(RateLimitMiddleware(authCfg.RateLimitRPS, authCfg.RateLimitBurst))

	// Unauthenticated endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	if deps.Gatherer != nil {
		router.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	router.Post("/api/auth/register", handler.Register)
	router.Post("/api/auth/login", handler.Login)

	// Operator endpoints (token required)
	router.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Auth))

		r.Route("/subjects", func(r chi.Router) {
			r.Post("/", handler.CreateSubject)
			r.Get("/", handler.ListSubjects)
			r.Get("/{id}", handler.GetSubject)
			r.Patch("/{id}/status", handler.UpdateSubjectStatus)
			r.Post("/{id}/verify", handler.VerifySubject)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", handler.CreateTransaction)
			r.Get("/", handler.ListTransactions)
		})

		r.Route("/fraud-alerts", func(r chi.Router) {
			r.Get("/", handler.ListAlerts)
			r.Patch("/{id}", handler.ResolveAlert)
			r.Post("/scan/{subjectID}", handler.ScanSubject)
			r.Post("/rescan", handler.Rescan)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", handler.Dashboard)
			r.Get("/fraud-by-type", handler.FraudByType)
			r.Get("/fraud-by-district", handler.FraudByDistrict)
			r.Get("/transactions-trend", handler.TransactionsTrend)
		})

		r.Route("/ml", func(r chi.Router) {
			r.Post("/train", handler.TrainModel)
			r.Get("/status", handler.ModelStatus)
		})

		r.Get("/shops", handler.ListShops)

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", handler.ListRules)
			r.Post("/", handler.CreateRule)
			r.Post("/reload", handler.ReloadRules)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
