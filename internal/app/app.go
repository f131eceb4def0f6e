// Package app wires the phishing simulation engine together and owns
// its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/analytics"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/api"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/auth"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/cache"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/campaign"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/config"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/dispatch"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/metrics"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/render"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/scheduler"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/store"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/track"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/transport"
)

// App is the assembled application.
type App struct {
	config    *config.Config
	store     *store.Bolt
	cache     *cache.Cache
	metrics   *metrics.Metrics
	campaigns *campaign.Service
	scheduler *scheduler.Scheduler
	apiServer *api.Server
	logger    *slog.Logger
}

// New constructs the application from configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	st, err := store.NewBolt(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	c := cache.New(cfg.Cache.TTL, cfg.Cache.SweepInterval)
	if m != nil {
		c.SetRecorder(m)
	}

	templates := repo.NewTemplates(st, c)
	campaignRepo := repo.NewCampaigns(st)
	recipients := repo.NewRecipients(st)

	mailer := transport.NewSMTPMailer(cfg.SMTP, logger)
	renderer := render.New(logger)

	dispatcher := dispatch.New(
		renderer,
		mailer,
		campaignRepo,
		recipients,
		m,
		cfg.Server.BaseURL,
		cfg.Dispatch.SendDelay,
		logger,
	)

	service := campaign.NewService(campaignRepo, recipients, templates, dispatcher, logger)
	aggregator := analytics.New(campaignRepo, recipients, logger)
	tracking := track.NewHandler(campaignRepo, recipients, m, logger)
	sched := scheduler.New(campaignRepo, service, cfg.Dispatch.SchedulerInterval, logger)

	authenticator := buildAuthenticator(cfg.Auth)

	server := api.NewServer(
		cfg.Server.ListenAddr,
		service,
		templates,
		aggregator,
		tracking,
		authenticator,
		m,
		logger,
	)

	return &App{
		config:    cfg,
		store:     st,
		cache:     c,
		metrics:   m,
		campaigns: service,
		scheduler: sched,
		apiServer: server,
		logger:    logger,
	}, nil
}

// Run starts the scheduler and HTTP server and blocks until ctx is
// cancelled, then shuts everything down in reverse order.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to shut down HTTP server", "error", err)
	}
	a.scheduler.Stop()
	a.campaigns.Shutdown()
	a.cache.Stop()

	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// Store exposes the record store for tooling commands.
func (a *App) Store() *store.Bolt {
	return a.store
}

func buildAuthenticator(cfg config.AuthConfig) auth.Authenticator {
	tokens := make(map[string]*auth.Identity, len(cfg.Tokens))
	for token, id := range cfg.Tokens {
		tokens[token] = &auth.Identity{
			UserID:      id.UserID,
			Email:       id.Email,
			TenantCode:  id.TenantCode,
			Roles:       id.Roles,
			Permissions: id.Permissions,
		}
	}
	return auth.NewStaticAuthenticator(tokens)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
