package campaign

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/dispatch"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/render"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/store"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/transport"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) Send(_ context.Context, msg *transport.Message) (*transport.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg.To)
	return &transport.Receipt{MessageID: msg.CorrelationID}, nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type serviceEnv struct {
	service    *Service
	campaigns  *repo.Campaigns
	recipients *repo.Recipients
	templates  *repo.Templates
	mailer     *recordingMailer
}

func newServiceEnv(t *testing.T) *serviceEnv {
	return newServiceEnvWithDelay(t, 0)
}

func newServiceEnvWithDelay(t *testing.T, delay time.Duration) *serviceEnv {
	t.Helper()

	st := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &serviceEnv{
		campaigns:  repo.NewCampaigns(st),
		recipients: repo.NewRecipients(st),
		templates:  repo.NewTemplates(st, nil),
		mailer:     &recordingMailer{},
	}

	dispatcher := dispatch.New(
		render.New(logger), env.mailer, env.campaigns, env.recipients,
		nil, "https://portal.test", delay, logger,
	)
	env.service = NewService(env.campaigns, env.recipients, env.templates, dispatcher, logger)

	if err := env.templates.Save(&model.Template{
		ID:          "tmpl-1",
		Name:        "lure",
		SenderEmail: "it@example.com",
		Subject:     "Hello {{first_name}}",
		BodyText:    "click {{tracking_link}}",
		TenantCode:  "acme",
	}); err != nil {
		t.Fatalf("save template: %v", err)
	}
	return env
}

func validInput() *CreateInput {
	return &CreateInput{
		Name:          "Q3 awareness",
		TenantID:      "t-1",
		TenantCode:    "acme",
		TenantName:    "Acme Corp",
		LegalEntityID: "le-1",
		TemplateID:    "tmpl-1",
		Recipients: []RecipientInput{
			{Email: "a@acme.com", Name: "Alice"},
			{Email: "b@acme.com", Name: "Bob"},
		},
	}
}

func TestCreate(t *testing.T) {
	env := newServiceEnv(t)

	c, err := env.service.Create(validInput(), "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if c.Status != model.StatusDraft {
		t.Errorf("Status = %q, want draft", c.Status)
	}
	if c.RecipientCount != 2 {
		t.Errorf("RecipientCount = %d, want 2", c.RecipientCount)
	}
	if c.SendMode != model.SendImmediate {
		t.Errorf("SendMode = %q, want immediate default", c.SendMode)
	}
	if !c.Tracking.Opens || !c.Tracking.Reports {
		t.Errorf("Tracking = %+v, want all channels defaulted on", c.Tracking)
	}
	if c.CreatedBy == nil || c.CreatedBy.Actor != "admin@acme.com" {
		t.Errorf("CreatedBy = %+v, want actor recorded", c.CreatedBy)
	}

	list, err := env.recipients.ListByCampaign(c.ID)
	if err != nil {
		t.Fatalf("list recipients: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("persisted %d recipients, want 2", len(list))
	}
	for _, rec := range list {
		if rec.Status != model.RecipientCreated {
			t.Errorf("recipient status = %q, want created", rec.Status)
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	env := newServiceEnv(t)

	t.Run("no recipients", func(t *testing.T) {
		in := validInput()
		in.Recipients = nil

		_, err := env.service.Create(in, "admin@acme.com")
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Create() error = %v, want validation", err)
		}
	})

	t.Run("unknown template", func(t *testing.T) {
		in := validInput()
		in.TemplateID = "nope"

		_, err := env.service.Create(in, "admin@acme.com")
		if !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Create() error = %v, want not found", err)
		}
	})

	t.Run("empty template id", func(t *testing.T) {
		in := validInput()
		in.TemplateID = ""

		// A blank required field is a validation failure, not a failed
		// template lookup.
		_, err := env.service.Create(in, "admin@acme.com")
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Create() error = %v, want validation", err)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		in := validInput()
		in.Name = ""

		_, err := env.service.Create(in, "admin@acme.com")
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Create() error = %v, want validation", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	env := newServiceEnv(t)
	c, err := env.service.Create(validInput(), "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	name := "renamed"
	updated, err := env.service.Update(c.ID, &UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", updated.Name)
	}
	if updated.TemplateID != "tmpl-1" {
		t.Errorf("TemplateID = %q, patch touched an omitted field", updated.TemplateID)
	}
}

func TestUpdate_RejectedOnceRunning(t *testing.T) {
	env := newServiceEnv(t)
	c, err := env.service.Create(validInput(), "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.service.Launch(context.Background(), c.ID, "admin@acme.com"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	env.service.Wait()

	name := "too late"
	_, err = env.service.Update(c.ID, &UpdateInput{Name: &name})
	if !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("Update() error = %v, want invalid state", err)
	}
}

func TestLaunch_ImmediateDispatches(t *testing.T) {
	env := newServiceEnv(t)
	c, err := env.service.Create(validInput(), "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	launched, err := env.service.Launch(context.Background(), c.ID, "admin@acme.com")
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if launched.Status != model.StatusRunning {
		t.Errorf("Status = %q, want running", launched.Status)
	}
	if launched.LaunchedBy == nil || launched.LaunchedBy.Actor != "admin@acme.com" {
		t.Errorf("LaunchedBy = %+v, want actor recorded", launched.LaunchedBy)
	}

	env.service.Wait()

	if got := env.mailer.count(); got != 2 {
		t.Errorf("dispatched %d emails, want 2", got)
	}

	// A drained batch completes the campaign.
	final, err := env.campaigns.Get(c.ID)
	if err != nil {
		t.Fatalf("reload campaign: %v", err)
	}
	if final.Status != model.StatusCompleted {
		t.Errorf("Status after dispatch = %q, want completed", final.Status)
	}
}

func TestLaunch_FutureStartDateSchedules(t *testing.T) {
	env := newServiceEnv(t)

	in := validInput()
	start := time.Now().Add(24 * time.Hour)
	in.StartDate = &start
	c, err := env.service.Create(in, "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	launched, err := env.service.Launch(context.Background(), c.ID, "admin@acme.com")
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if launched.Status != model.StatusScheduled {
		t.Errorf("Status = %q, want scheduled", launched.Status)
	}

	env.service.Wait()
	if got := env.mailer.count(); got != 0 {
		t.Errorf("dispatched %d emails before the start date, want 0", got)
	}
}

func TestLaunch_InvalidFromTerminal(t *testing.T) {
	env := newServiceEnv(t)
	c, err := env.service.Create(validInput(), "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.service.Stop(c.ID, "admin@acme.com"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	_, err = env.service.Launch(context.Background(), c.ID, "admin@acme.com")
	if !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("Launch() error = %v, want invalid state", err)
	}
}

func TestStop(t *testing.T) {
	env := newServiceEnv(t)
	c, err := env.service.Create(validInput(), "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stopped, err := env.service.Stop(c.ID, "admin@acme.com")
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if stopped.Status != model.StatusStopped {
		t.Errorf("Status = %q, want stopped", stopped.Status)
	}
	if stopped.StoppedBy == nil || stopped.StoppedBy.Actor != "admin@acme.com" {
		t.Errorf("StoppedBy = %+v, want actor recorded", stopped.StoppedBy)
	}

	// Stopping twice is rejected.
	if _, err := env.service.Stop(c.ID, "admin@acme.com"); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("second Stop() error = %v, want invalid state", err)
	}
}

func TestDelete_RemovesRecipients(t *testing.T) {
	env := newServiceEnv(t)
	c, err := env.service.Create(validInput(), "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := env.service.Delete(c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := env.campaigns.Get(c.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want not found", err)
	}
	list, err := env.recipients.ListByCampaign(c.ID)
	if err != nil {
		t.Fatalf("list recipients: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("delete left %d recipient records", len(list))
	}
}

// Shutdown must not wait out the inter-send delays of a long batch.
func TestShutdown_AbortsInFlightDispatch(t *testing.T) {
	env := newServiceEnvWithDelay(t, 150*time.Millisecond)

	in := validInput()
	in.Recipients = []RecipientInput{
		{Email: "a@acme.com", Name: "A"},
		{Email: "b@acme.com", Name: "B"},
		{Email: "c@acme.com", Name: "C"},
		{Email: "d@acme.com", Name: "D"},
		{Email: "e@acme.com", Name: "E"},
		{Email: "f@acme.com", Name: "F"},
	}
	c, err := env.service.Create(in, "admin@acme.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.service.Launch(context.Background(), c.ID, "admin@acme.com"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	env.service.Shutdown()

	if got := env.mailer.count(); got >= len(in.Recipients) {
		t.Errorf("dispatched %d emails, want the batch cut short", got)
	}

	// An aborted run never marks the campaign completed.
	final, err := env.campaigns.Get(c.ID)
	if err != nil {
		t.Fatalf("reload campaign: %v", err)
	}
	if final.Status == model.StatusCompleted {
		t.Error("aborted batch marked the campaign completed")
	}
}

func TestDelete_UnknownCampaign(t *testing.T) {
	env := newServiceEnv(t)

	if err := env.service.Delete("nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Delete() error = %v, want not found", err)
	}
}
