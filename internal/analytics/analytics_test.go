package analytics

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/store"
)

type aggEnv struct {
	agg        *Aggregator
	campaigns  *repo.Campaigns
	recipients *repo.Recipients
}

func newAggEnv(t *testing.T) *aggEnv {
	t.Helper()

	st := store.NewMemory()
	env := &aggEnv{
		campaigns:  repo.NewCampaigns(st),
		recipients: repo.NewRecipients(st),
	}
	env.agg = New(env.campaigns, env.recipients, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return env
}

// seedCampaign persists a campaign plus n recipients; the first opened
// recipients have the open flag set, the first clicked the click flag,
// and so on.
func (e *aggEnv) seedCampaign(t *testing.T, id string, n, opened, clicked, submitted, reported int) {
	t.Helper()

	if err := e.campaigns.Save(&model.Campaign{
		ID:            id,
		Name:          "campaign " + id,
		TenantCode:    "acme",
		LegalEntityID: "le-1",
		TemplateID:    "tmpl-1",
		SendMode:      model.SendImmediate,
		Status:        model.StatusCompleted,
	}); err != nil {
		t.Fatalf("save campaign: %v", err)
	}

	for i := 0; i < n; i++ {
		rec := &model.Recipient{
			ID:         "rec-" + string(rune('a'+i)),
			CampaignID: id,
			Email:      "u@acme.com",
			Name:       "U",
			Status:     model.RecipientSent,
			Opened:     i < opened,
			Clicked:    i < clicked,
			Submitted:  i < submitted,
			Reported:   i < reported,
		}
		if err := e.recipients.Save(rec); err != nil {
			t.Fatalf("save recipient: %v", err)
		}
	}
}

func TestCampaign_Rates(t *testing.T) {
	env := newAggEnv(t)
	env.seedCampaign(t, "c1", 8, 4, 2, 1, 3)

	stats, err := env.agg.Campaign("c1")
	if err != nil {
		t.Fatalf("Campaign() error = %v", err)
	}

	if stats.Recipients != 8 {
		t.Errorf("Recipients = %d, want 8", stats.Recipients)
	}
	if stats.OpenRate != 50 {
		t.Errorf("OpenRate = %v, want 50", stats.OpenRate)
	}
	if stats.ClickRate != 25 {
		t.Errorf("ClickRate = %v, want 25", stats.ClickRate)
	}
	if stats.SubmitRate != 12.5 {
		t.Errorf("SubmitRate = %v, want 12.5", stats.SubmitRate)
	}
	if stats.ReportRate != 37.5 {
		t.Errorf("ReportRate = %v, want 37.5", stats.ReportRate)
	}
}

func TestCampaign_NoRecipients(t *testing.T) {
	env := newAggEnv(t)
	env.seedCampaign(t, "c1", 0, 0, 0, 0, 0)

	stats, err := env.agg.Campaign("c1")
	if err != nil {
		t.Fatalf("Campaign() error = %v", err)
	}
	if stats.OpenRate != 0 || stats.ClickRate != 0 || stats.SubmitRate != 0 || stats.ReportRate != 0 {
		t.Errorf("rates for empty campaign = %+v, want all 0", stats)
	}
}

func TestCampaign_Unknown(t *testing.T) {
	env := newAggEnv(t)

	_, err := env.agg.Campaign("nope")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Campaign() error = %v, want not found", err)
	}
}

func TestTenant_AggregatesAcrossCampaigns(t *testing.T) {
	env := newAggEnv(t)
	env.seedCampaign(t, "c1", 4, 2, 1, 0, 2)
	env.seedCampaign(t, "c2", 6, 3, 0, 0, 5)

	stats, err := env.agg.Tenant("acme")
	if err != nil {
		t.Fatalf("Tenant() error = %v", err)
	}

	if stats.CampaignCount != 2 {
		t.Errorf("CampaignCount = %d, want 2", stats.CampaignCount)
	}
	if stats.Recipients != 10 {
		t.Errorf("Recipients = %d, want 10", stats.Recipients)
	}
	if stats.Opened != 5 || stats.Clicked != 1 || stats.Reported != 7 {
		t.Errorf("counts = %d/%d/%d, want 5/1/7", stats.Opened, stats.Clicked, stats.Reported)
	}
	if stats.ClickRate != 10 {
		t.Errorf("ClickRate = %v, want 10", stats.ClickRate)
	}
	if stats.ReportRate != 70 {
		t.Errorf("ReportRate = %v, want 70", stats.ReportRate)
	}

	// 0.7*70 + 0.3*(100-10) = 76 -> B
	if math.Abs(stats.MaturityScore-76) > 1e-9 {
		t.Errorf("MaturityScore = %v, want 76", stats.MaturityScore)
	}
	if stats.MaturityGrade != "B" {
		t.Errorf("MaturityGrade = %q, want B", stats.MaturityGrade)
	}
}

func TestMaturity(t *testing.T) {
	tests := []struct {
		name       string
		reportRate float64
		clickRate  float64
		recipients int
		wantScore  float64
		wantGrade  string
	}{
		{"no population", 0, 0, 0, 0, "N/A"},
		{"nobody reacted", 0, 0, 10, 30, "D"},
		{"everyone reported nothing clicked", 100, 0, 10, 100, "A"},
		{"everyone clicked nobody reported", 0, 100, 10, 0, "D"},
		{"just below b", 50, 25, 10, 57.5, "C"},
		{"mid field", 60, 20, 10, 66, "B"},
		{"solid a", 90, 10, 10, 90, "A"},
		{"grade c", 40, 50, 10, 43, "C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, grade := Maturity(tt.reportRate, tt.clickRate, tt.recipients)
			if math.Abs(score-tt.wantScore) > 1e-9 {
				t.Errorf("Maturity() score = %v, want %v", score, tt.wantScore)
			}
			if grade != tt.wantGrade {
				t.Errorf("Maturity() grade = %q, want %q", grade, tt.wantGrade)
			}
		})
	}
}

func TestTenant_Empty(t *testing.T) {
	env := newAggEnv(t)

	stats, err := env.agg.Tenant("ghost")
	if err != nil {
		t.Fatalf("Tenant() error = %v", err)
	}
	if stats.CampaignCount != 0 {
		t.Errorf("CampaignCount = %d, want 0", stats.CampaignCount)
	}
	if stats.MaturityGrade != "N/A" {
		t.Errorf("MaturityGrade = %q, want N/A", stats.MaturityGrade)
	}
}
