// Package scheduler promotes scheduled campaigns to running once
// their start date arrives.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/campaign"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
)

// Scheduler polls for due campaigns and re-invokes Launch, which is
// safe to call again on a scheduled campaign.
type Scheduler struct {
	campaigns *repo.Campaigns
	service   *campaign.Service
	interval  time.Duration
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(campaigns *repo.Campaigns, service *campaign.Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		campaigns: campaigns,
		service:   service,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start launches the polling loop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("scheduler started", "interval", s.interval)
}

// Stop terminates the polling loop.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PromoteDue(ctx)
		}
	}
}

// PromoteDue launches every scheduled campaign whose start date has
// arrived. Exposed for tests and one-shot invocation.
func (s *Scheduler) PromoteDue(ctx context.Context) {
	due, err := s.campaigns.ListByStatus(model.StatusScheduled)
	if err != nil {
		s.logger.Error("failed to list scheduled campaigns", "error", err)
		return
	}

	now := time.Now()
	for _, c := range due {
		if c.StartDate != nil && c.StartDate.After(now) {
			continue
		}
		if _, err := s.service.Launch(ctx, c.ID, "scheduler"); err != nil {
			s.logger.Error("failed to promote campaign", "campaign_id", c.ID, "error", err)
			continue
		}
		s.logger.Info("campaign promoted", "campaign_id", c.ID, "scheduled_start", c.StartDate)
	}
}
