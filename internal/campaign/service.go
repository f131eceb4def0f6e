// Package campaign owns the campaign and recipient records and the
// lifecycle state machine around them.
package campaign

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/dispatch"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
)

// RecipientInput is one target supplied at campaign creation.
type RecipientInput struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Site       string `json:"site,omitempty"`
}

// CreateInput carries everything needed to create a campaign.
type CreateInput struct {
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Objective     string              `json:"objective,omitempty"`
	TenantID      string              `json:"tenantId"`
	TenantCode    string              `json:"tenantCode"`
	TenantName    string              `json:"tenantName"`
	LegalEntityID string              `json:"legalEntityId"`
	OwnerEmail    string              `json:"ownerEmail,omitempty"`
	TemplateID    string              `json:"templateId"`
	LandingPageID string              `json:"landingPageId,omitempty"`
	StartDate     *time.Time          `json:"startDate,omitempty"`
	EndDate       *time.Time          `json:"endDate,omitempty"`
	SendMode      model.SendMode      `json:"sendMode"`
	Tracking      model.TrackingFlags `json:"tracking"`
	Privacy       model.PrivacyPolicy `json:"privacy"`
	AutoSensitize bool                `json:"autoSensitize"`
	Recipients    []RecipientInput    `json:"recipients"`
}

// UpdateInput is a shallow patch; nil fields keep their stored value.
type UpdateInput struct {
	Name          *string              `json:"name,omitempty"`
	Description   *string              `json:"description,omitempty"`
	Objective     *string              `json:"objective,omitempty"`
	OwnerEmail    *string              `json:"ownerEmail,omitempty"`
	TemplateID    *string              `json:"templateId,omitempty"`
	LandingPageID *string              `json:"landingPageId,omitempty"`
	StartDate     *time.Time           `json:"startDate,omitempty"`
	EndDate       *time.Time           `json:"endDate,omitempty"`
	SendMode      *model.SendMode      `json:"sendMode,omitempty"`
	Tracking      *model.TrackingFlags `json:"tracking,omitempty"`
	Privacy       *model.PrivacyPolicy `json:"privacy,omitempty"`
	AutoSensitize *bool                `json:"autoSensitize,omitempty"`
}

// Service is the campaign lifecycle manager.
type Service struct {
	campaigns  *repo.Campaigns
	recipients *repo.Recipients
	templates  *repo.Templates
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	now        func() time.Time

	// dispatchCtx outlives the triggering request but dies with the
	// service, so shutdown can cut a long batch short.
	dispatchCtx context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewService creates the lifecycle manager.
func NewService(
	campaigns *repo.Campaigns,
	recipients *repo.Recipients,
	templates *repo.Templates,
	dispatcher *dispatch.Dispatcher,
	logger *slog.Logger,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		campaigns:   campaigns,
		recipients:  recipients,
		templates:   templates,
		dispatcher:  dispatcher,
		logger:      logger.With("component", "campaign_service"),
		now:         time.Now,
		dispatchCtx: ctx,
		cancel:      cancel,
	}
}

// Create validates the input, persists every recipient and then the
// campaign record. Writing the campaign last means a reader never
// observes a campaign without its recipients.
func (s *Service) Create(in *CreateInput, actor string) (*model.Campaign, error) {
	if len(in.Recipients) == 0 {
		return nil, errs.Validation("campaign requires at least one recipient")
	}

	now := s.now()
	c := &model.Campaign{
		ID:             uuid.New().String(),
		Name:           in.Name,
		Description:    in.Description,
		Objective:      in.Objective,
		TenantID:       in.TenantID,
		TenantCode:     in.TenantCode,
		TenantName:     in.TenantName,
		LegalEntityID:  in.LegalEntityID,
		OwnerEmail:     in.OwnerEmail,
		TemplateID:     in.TemplateID,
		LandingPageID:  in.LandingPageID,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		SendMode:       in.SendMode,
		Tracking:       in.Tracking,
		Privacy:        in.Privacy,
		AutoSensitize:  in.AutoSensitize,
		Status:         model.StatusDraft,
		RecipientCount: len(in.Recipients),
		CreatedBy:      &model.Audit{Actor: actor, At: now},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.SendMode == "" {
		c.SendMode = model.SendImmediate
	}
	if c.Tracking == (model.TrackingFlags{}) {
		// A campaign that tracks nothing measures nothing; all four
		// channels default to on unless the caller chose otherwise.
		c.Tracking = model.TrackingFlags{Opens: true, Clicks: true, Submissions: true, Reports: true}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.templates.Get(c.TemplateID); err != nil {
		return nil, err
	}

	for _, rin := range in.Recipients {
		rec := &model.Recipient{
			ID:         uuid.New().String(),
			CampaignID: c.ID,
			Email:      rin.Email,
			Name:       rin.Name,
			Department: rin.Department,
			Site:       rin.Site,
			Status:     model.RecipientCreated,
			CreatedAt:  now,
		}
		if err := s.recipients.Save(rec); err != nil {
			// Abandon the partial recipient set; without the campaign
			// record it is unreachable and swept by Delete semantics.
			if _, derr := s.recipients.DeleteByCampaign(c.ID); derr != nil {
				s.logger.Error("failed to clean up partial campaign", "campaign_id", c.ID, "error", derr)
			}
			return nil, err
		}
	}

	if err := s.campaigns.Save(c); err != nil {
		if _, derr := s.recipients.DeleteByCampaign(c.ID); derr != nil {
			s.logger.Error("failed to clean up partial campaign", "campaign_id", c.ID, "error", derr)
		}
		return nil, err
	}

	s.logger.Info("campaign created",
		"campaign_id", c.ID,
		"tenant", c.TenantCode,
		"recipients", c.RecipientCount,
		"actor", actor,
	)
	return c, nil
}

// Get returns one campaign.
func (s *Service) Get(id string) (*model.Campaign, error) {
	return s.campaigns.Get(id)
}

// List returns a tenant's campaigns.
func (s *Service) List(tenantCode string) ([]*model.Campaign, error) {
	return s.campaigns.ListByTenant(tenantCode)
}

// Recipients returns a campaign's recipient records.
func (s *Service) Recipients(id string) ([]*model.Recipient, error) {
	if _, err := s.campaigns.Get(id); err != nil {
		return nil, err
	}
	return s.recipients.ListByCampaign(id)
}

// Update applies a shallow patch. Only draft and scheduled campaigns
// may be edited.
func (s *Service) Update(id string, in *UpdateInput) (*model.Campaign, error) {
	c, err := s.campaigns.Get(id)
	if err != nil {
		return nil, err
	}
	if !c.Editable() {
		return nil, errs.InvalidState("campaign %s is %s and cannot be edited", id, c.Status)
	}

	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Objective != nil {
		c.Objective = *in.Objective
	}
	if in.OwnerEmail != nil {
		c.OwnerEmail = *in.OwnerEmail
	}
	if in.TemplateID != nil {
		if _, err := s.templates.Get(*in.TemplateID); err != nil {
			return nil, err
		}
		c.TemplateID = *in.TemplateID
	}
	if in.LandingPageID != nil {
		c.LandingPageID = *in.LandingPageID
	}
	if in.StartDate != nil {
		c.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		c.EndDate = in.EndDate
	}
	if in.SendMode != nil {
		c.SendMode = *in.SendMode
	}
	if in.Tracking != nil {
		c.Tracking = *in.Tracking
	}
	if in.Privacy != nil {
		c.Privacy = *in.Privacy
	}
	if in.AutoSensitize != nil {
		c.AutoSensitize = *in.AutoSensitize
	}
	c.UpdatedAt = s.now()

	if err := s.campaigns.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Launch moves a draft or scheduled campaign forward. A future start
// date parks it in scheduled; otherwise it goes to running, and an
// immediate-mode campaign starts its dispatch run in the background.
// The call returns as soon as the status transition is persisted.
func (s *Service) Launch(ctx context.Context, id, actor string) (*model.Campaign, error) {
	c, err := s.campaigns.Get(id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusDraft && c.Status != model.StatusScheduled {
		return nil, errs.InvalidState("campaign %s is %s and cannot be launched", id, c.Status)
	}

	now := s.now()
	if c.StartDate != nil && c.StartDate.After(now) {
		c.Status = model.StatusScheduled
	} else {
		c.Status = model.StatusRunning
	}
	c.LaunchedBy = &model.Audit{Actor: actor, At: now}
	c.UpdatedAt = now

	if err := s.campaigns.Save(c); err != nil {
		return nil, err
	}

	s.logger.Info("campaign launched",
		"campaign_id", c.ID,
		"status", c.Status,
		"send_mode", c.SendMode,
		"actor", actor,
	)

	if c.Status == model.StatusRunning && c.SendMode == model.SendImmediate {
		if err := s.startDispatch(c); err != nil {
			// The transition is already persisted; dispatch problems
			// surface only through logs per the fire-and-forget design.
			s.logger.Error("failed to start dispatch", "campaign_id", c.ID, "error", err)
		}
	}
	return c, nil
}

// startDispatch loads the template and recipient snapshot and hands
// them to a detached dispatch run. The triggering caller observes
// nothing of the run's outcome.
func (s *Service) startDispatch(c *model.Campaign) error {
	tmpl, err := s.templates.Get(c.TemplateID)
	if err != nil {
		return err
	}
	list, err := s.recipients.ListByCampaign(c.ID)
	if err != nil {
		return err
	}

	snapshot := *c
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := s.dispatcher.Run(s.dispatchCtx, &snapshot, tmpl, list)
		if !result.Aborted {
			s.markCompleted(snapshot.ID)
		}
	}()
	return nil
}

// markCompleted moves a still-running campaign to completed once its
// dispatch run has drained the batch.
func (s *Service) markCompleted(id string) {
	c, err := s.campaigns.Get(id)
	if err != nil {
		s.logger.Error("failed to reload campaign after dispatch", "campaign_id", id, "error", err)
		return
	}
	if c.Status != model.StatusRunning {
		return
	}
	c.Status = model.StatusCompleted
	c.UpdatedAt = s.now()
	if err := s.campaigns.Save(c); err != nil {
		s.logger.Error("failed to mark campaign completed", "campaign_id", id, "error", err)
	}
}

// Stop unconditionally moves a non-terminal campaign to stopped.
// Already-sent emails are not retracted; an in-flight dispatch run
// notices the status change on its next poll.
func (s *Service) Stop(id, actor string) (*model.Campaign, error) {
	c, err := s.campaigns.Get(id)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, errs.InvalidState("campaign %s is already %s", id, c.Status)
	}

	now := s.now()
	c.Status = model.StatusStopped
	c.StoppedBy = &model.Audit{Actor: actor, At: now}
	c.UpdatedAt = now

	if err := s.campaigns.Save(c); err != nil {
		return nil, err
	}

	s.logger.Info("campaign stopped", "campaign_id", id, "actor", actor)
	return c, nil
}

// Delete removes the campaign and all its recipient records. Allowed
// from any status and not reversible.
func (s *Service) Delete(id string) error {
	if _, err := s.campaigns.Get(id); err != nil {
		return err
	}

	n, err := s.recipients.DeleteByCampaign(id)
	if err != nil {
		return err
	}
	if err := s.campaigns.Delete(id); err != nil {
		return err
	}

	s.logger.Info("campaign deleted", "campaign_id", id, "recipients_removed", n)
	return nil
}

// Wait blocks until all background dispatch runs have drained. Used in
// tests, where runs are short.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown cancels in-flight dispatch runs and waits for them to
// abort. The dispatcher notices the cancellation at its next
// inter-send wait, so the block is bounded by one send, not by the
// remaining batch.
func (s *Service) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
