package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/campaign"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/dispatch"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/render"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/store"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/transport"
)

type countingMailer struct {
	mu   sync.Mutex
	sent int
}

func (m *countingMailer) Send(_ context.Context, msg *transport.Message) (*transport.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return &transport.Receipt{MessageID: msg.CorrelationID}, nil
}

type schedEnv struct {
	scheduler *Scheduler
	service   *campaign.Service
	campaigns *repo.Campaigns
	mailer    *countingMailer
}

func newSchedEnv(t *testing.T) *schedEnv {
	t.Helper()

	st := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	campaigns := repo.NewCampaigns(st)
	recipients := repo.NewRecipients(st)
	templates := repo.NewTemplates(st, nil)
	mailer := &countingMailer{}

	dispatcher := dispatch.New(render.New(logger), mailer, campaigns, recipients, nil, "https://portal.test", 0, logger)
	service := campaign.NewService(campaigns, recipients, templates, dispatcher, logger)

	if err := templates.Save(&model.Template{
		ID:          "tmpl-1",
		Name:        "lure",
		SenderEmail: "it@example.com",
		Subject:     "s",
		BodyText:    "t",
		TenantCode:  "acme",
	}); err != nil {
		t.Fatalf("save template: %v", err)
	}

	return &schedEnv{
		scheduler: New(campaigns, service, time.Minute, logger),
		service:   service,
		campaigns: campaigns,
		mailer:    mailer,
	}
}

// scheduled persists a campaign parked in the scheduled status. The
// start date must be in the future for the launch to park it.
func (e *schedEnv) scheduled(t *testing.T, name string, start time.Time) string {
	t.Helper()

	c, err := e.service.Create(&campaign.CreateInput{
		Name:          name,
		TenantCode:    "acme",
		TenantName:    "Acme Corp",
		LegalEntityID: "le-1",
		TemplateID:    "tmpl-1",
		StartDate:     &start,
		Recipients:    []campaign.RecipientInput{{Email: "a@acme.com", Name: "Alice"}},
	}, "admin@acme.com")
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if _, err := e.service.Launch(context.Background(), c.ID, "admin@acme.com"); err != nil {
		t.Fatalf("launch campaign: %v", err)
	}
	return c.ID
}

func TestPromoteDue(t *testing.T) {
	env := newSchedEnv(t)
	id := env.scheduled(t, "due", time.Now().Add(24*time.Hour))

	// Simulate the clock passing the start date by rewriting it into
	// the past.
	c, err := env.campaigns.Get(id)
	if err != nil {
		t.Fatalf("load campaign: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	c.StartDate = &past
	if err := env.campaigns.Save(c); err != nil {
		t.Fatalf("save campaign: %v", err)
	}

	env.scheduler.PromoteDue(context.Background())
	env.service.Wait()

	running, err := env.campaigns.ListByStatus(model.StatusScheduled)
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(running) != 0 {
		t.Errorf("%d campaigns still scheduled after promotion", len(running))
	}

	env.mailer.mu.Lock()
	sent := env.mailer.sent
	env.mailer.mu.Unlock()
	if sent != 1 {
		t.Errorf("dispatched %d emails, want 1", sent)
	}
}

func TestPromoteDue_SkipsFutureStartDates(t *testing.T) {
	env := newSchedEnv(t)
	env.scheduled(t, "future", time.Now().Add(24*time.Hour))

	env.scheduler.PromoteDue(context.Background())
	env.service.Wait()

	parked, err := env.campaigns.ListByStatus(model.StatusScheduled)
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(parked) != 1 {
		t.Errorf("%d campaigns scheduled, want the future one untouched", len(parked))
	}

	env.mailer.mu.Lock()
	sent := env.mailer.sent
	env.mailer.mu.Unlock()
	if sent != 0 {
		t.Errorf("dispatched %d emails for a future campaign, want 0", sent)
	}
}
