// Package api exposes the authenticated administrative surface of the
// phishing simulation engine and mounts the public tracking routes.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/analytics"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/auth"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/campaign"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/metrics"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/track"
)

// Server is the HTTP server for the phishing subsystem.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	campaigns     *campaign.Service
	templates     *repo.Templates
	analytics     *analytics.Aggregator
	tracking      *track.Handler
	authenticator auth.Authenticator
	metrics       *metrics.Metrics

	listenAddr string
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates the HTTP server. metrics may be nil.
func NewServer(
	listenAddr string,
	campaigns *campaign.Service,
	templates *repo.Templates,
	aggregator *analytics.Aggregator,
	tracking *track.Handler,
	authenticator auth.Authenticator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		campaigns:     campaigns,
		templates:     templates,
		analytics:     aggregator,
		tracking:      tracking,
		authenticator: authenticator,
		metrics:       m,
		listenAddr:    listenAddr,
		logger:        logger.With("component", "api"),
		startTime:     time.Now(),
	}

	s.setupRoutes()
	return s
}

// Router returns the configured router, used directly in tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.HTTPMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Public tracking endpoints, no auth by design.
	s.tracking.Register(s.router)

	s.router.Route("/api/v1/phishing", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/templates", s.handleListTemplates)
		r.Post("/templates", s.handleCreateTemplate)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Put("/templates/{id}", s.handleUpdateTemplate)
		r.Delete("/templates/{id}", s.handleDeleteTemplate)

		r.Get("/campaigns", s.handleListCampaigns)
		r.Post("/campaigns", s.handleCreateCampaign)
		r.Get("/campaigns/{id}", s.handleGetCampaign)
		r.Put("/campaigns/{id}", s.handleUpdateCampaign)
		r.Delete("/campaigns/{id}", s.handleDeleteCampaign)
		r.Post("/campaigns/{id}/launch", s.handleLaunchCampaign)
		r.Post("/campaigns/{id}/stop", s.handleStopCampaign)
		r.Get("/campaigns/{id}/recipients", s.handleListRecipients)
		r.Get("/campaigns/{id}/stats", s.handleCampaignStats)

		r.Get("/stats", s.handleTenantStats)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.listenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
