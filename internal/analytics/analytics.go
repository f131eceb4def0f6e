// Package analytics computes campaign and tenant statistics from
// recipient records, including the security-maturity score.
package analytics

import (
	"log/slog"
	"math"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
)

// CampaignStats is the per-campaign result.
type CampaignStats struct {
	CampaignID   string  `json:"campaignId"`
	CampaignName string  `json:"campaignName"`
	Status       string  `json:"status"`
	Recipients   int     `json:"recipients"`
	Opened       int     `json:"opened"`
	Clicked      int     `json:"clicked"`
	Submitted    int     `json:"submitted"`
	Reported     int     `json:"reported"`
	OpenRate     float64 `json:"openRate"`
	ClickRate    float64 `json:"clickRate"`
	SubmitRate   float64 `json:"submitRate"`
	ReportRate   float64 `json:"reportRate"`
}

// TenantStats aggregates every campaign of a tenant.
type TenantStats struct {
	TenantCode    string          `json:"tenantCode"`
	Campaigns     []CampaignStats `json:"campaigns"`
	CampaignCount int             `json:"campaignCount"`
	Recipients    int             `json:"recipients"`
	Opened        int             `json:"opened"`
	Clicked       int             `json:"clicked"`
	Submitted     int             `json:"submitted"`
	Reported      int             `json:"reported"`
	OpenRate      float64         `json:"openRate"`
	ClickRate     float64         `json:"clickRate"`
	SubmitRate    float64         `json:"submitRate"`
	ReportRate    float64         `json:"reportRate"`
	MaturityScore float64         `json:"maturityScore"`
	MaturityGrade string          `json:"maturityGrade"`
}

// Aggregator reads campaign and recipient records to produce stats.
type Aggregator struct {
	campaigns  *repo.Campaigns
	recipients *repo.Recipients
	logger     *slog.Logger
}

// New creates an aggregator.
func New(campaigns *repo.Campaigns, recipients *repo.Recipients, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		campaigns:  campaigns,
		recipients: recipients,
		logger:     logger.With("component", "analytics"),
	}
}

// Campaign computes the stats of one campaign from its recipient
// records.
func (a *Aggregator) Campaign(campaignID string) (*CampaignStats, error) {
	c, err := a.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}
	list, err := a.recipients.ListByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	stats := tally(c, list)
	return &stats, nil
}

// Tenant fans out over every campaign of a tenant and aggregates the
// counts, rates and the maturity grade.
func (a *Aggregator) Tenant(tenantCode string) (*TenantStats, error) {
	campaigns, err := a.campaigns.ListByTenant(tenantCode)
	if err != nil {
		return nil, err
	}

	out := &TenantStats{
		TenantCode: tenantCode,
		Campaigns:  make([]CampaignStats, 0, len(campaigns)),
	}
	for _, c := range campaigns {
		list, err := a.recipients.ListByCampaign(c.ID)
		if err != nil {
			return nil, err
		}
		cs := tally(c, list)
		out.Campaigns = append(out.Campaigns, cs)
		out.Recipients += cs.Recipients
		out.Opened += cs.Opened
		out.Clicked += cs.Clicked
		out.Submitted += cs.Submitted
		out.Reported += cs.Reported
	}
	out.CampaignCount = len(campaigns)

	out.OpenRate = rate(out.Opened, out.Recipients)
	out.ClickRate = rate(out.Clicked, out.Recipients)
	out.SubmitRate = rate(out.Submitted, out.Recipients)
	out.ReportRate = rate(out.Reported, out.Recipients)
	out.MaturityScore, out.MaturityGrade = Maturity(out.ReportRate, out.ClickRate, out.Recipients)

	return out, nil
}

// Maturity computes the weighted maturity score and letter grade from
// aggregate rates. A tenant with no recipients has no score.
func Maturity(reportRate, clickRate float64, recipients int) (float64, string) {
	if recipients == 0 {
		return 0, "N/A"
	}
	score := 0.7*reportRate + 0.3*(100-clickRate)
	switch {
	case score >= 80:
		return score, "A"
	case score >= 60:
		return score, "B"
	case score >= 40:
		return score, "C"
	default:
		return score, "D"
	}
}

func tally(c *model.Campaign, list []*model.Recipient) CampaignStats {
	stats := CampaignStats{
		CampaignID:   c.ID,
		CampaignName: c.Name,
		Status:       string(c.Status),
		Recipients:   len(list),
	}
	for _, r := range list {
		if r.Opened {
			stats.Opened++
		}
		if r.Clicked {
			stats.Clicked++
		}
		if r.Submitted {
			stats.Submitted++
		}
		if r.Reported {
			stats.Reported++
		}
	}
	stats.OpenRate = rate(stats.Opened, stats.Recipients)
	stats.ClickRate = rate(stats.Clicked, stats.Recipients)
	stats.SubmitRate = rate(stats.Submitted, stats.Recipients)
	stats.ReportRate = rate(stats.Reported, stats.Recipients)
	return stats
}

// rate returns the percentage with one decimal place, and 0 for an
// empty population.
func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
