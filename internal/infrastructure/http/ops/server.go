// Package ops serves the operational HTTP surface: liveness, readiness,
// Prometheus metrics and catalog cache invalidation
package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mealprep/recommender/internal/infrastructure/config"
	"github.com/mealprep/recommender/pkg/healthcheck"
	"go.uber.org/zap"
)

// CatalogInvalidator drops the cached catalog snapshot
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// FlagSource exposes the runtime-toggleable flags
type FlagSource interface {
	AIEnabled() bool
}

// Dependencies are the handlers' collaborators. Metrics, Catalog and Flags
// may be nil; their routes are then not mounted.
type Dependencies struct {
	Health  *healthcheck.HealthCheck
	Metrics http.Handler
	Catalog CatalogInvalidator
	Flags   FlagSource
}

// NewRouter builds the ops router
func NewRouter(deps Dependencies, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", deps.Health.LivenessHandler())
	r.Get("/readyz", deps.Health.ReadinessHandler())
	r.Get("/health", deps.Health.Handler())

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(10 * time.Second))

		if deps.Catalog != nil {
			r.Post("/catalog/invalidate", invalidateHandler(deps.Catalog, logger))
		}
		if deps.Flags != nil {
			r.Get("/flags", flagsHandler(deps.Flags))
		}
	})

	return r
}

func invalidateHandler(catalog CatalogInvalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := catalog.Invalidate(r.Context()); err != nil {
			logger.Error("Catalog invalidation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
	}
}

func flagsHandler(flags FlagSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ai_enabled": flags.AIEnabled()})
	}
}

// Server wraps the ops router in an http.Server
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer creates an ops server listening on cfg.Host:cfg.Port
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger.Named("ops-server"),
	}
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting ops server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down ops server")
	return s.server.Shutdown(ctx)
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.server.Addr
}
