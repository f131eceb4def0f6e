package model

import (
	"strings"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
)

// CampaignStatus is the campaign lifecycle state.
type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusScheduled CampaignStatus = "scheduled"
	StatusRunning   CampaignStatus = "running"
	StatusCompleted CampaignStatus = "completed"
	StatusStopped   CampaignStatus = "stopped"
)

// Terminal reports whether the status admits no further transitions.
func (s CampaignStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped
}

// SendMode selects how a launched campaign dispatches.
type SendMode string

const (
	SendImmediate SendMode = "immediate"
	SendScheduled SendMode = "scheduled"
)

// TrackingFlags toggles each interaction channel independently.
type TrackingFlags struct {
	Opens       bool `json:"opens"`
	Clicks      bool `json:"clicks"`
	Submissions bool `json:"submissions"`
	Reports     bool `json:"reports"`
}

// PrivacyPolicy controls how recipient-level results are exposed.
type PrivacyPolicy struct {
	// Granularity is "individual" or "aggregated".
	Granularity string `json:"granularity"`
	Anonymize   bool   `json:"anonymize"`
}

// Audit records who performed a lifecycle action and when.
type Audit struct {
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
}

// Campaign is one simulated phishing campaign. RecipientCount is fixed
// at creation time and keeps its value even if recipient records are
// later deleted.
type Campaign struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Objective     string `json:"objective,omitempty"`
	TenantID      string `json:"tenantId"`
	TenantCode    string `json:"tenantCode"`
	TenantName    string `json:"tenantName"`
	LegalEntityID string `json:"legalEntityId"`
	OwnerEmail    string `json:"ownerEmail,omitempty"`
	TemplateID    string `json:"templateId"`
	LandingPageID string `json:"landingPageId,omitempty"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	SendMode  SendMode   `json:"sendMode"`

	Tracking       TrackingFlags  `json:"tracking"`
	Privacy        PrivacyPolicy  `json:"privacy"`
	AutoSensitize  bool           `json:"autoSensitize"`
	Status         CampaignStatus `json:"status"`
	RecipientCount int            `json:"recipientCount"`

	CreatedBy  *Audit    `json:"createdBy,omitempty"`
	LaunchedBy *Audit    `json:"launchedBy,omitempty"`
	StoppedBy  *Audit    `json:"stoppedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate checks the fields required to create a campaign. Recipient
// presence is checked by the lifecycle service, which owns recipient
// creation.
func (c *Campaign) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errs.Validation("campaign name is required")
	}
	if c.LegalEntityID == "" {
		return errs.Validation("campaign target legal entity is required")
	}
	if c.TemplateID == "" {
		return errs.Validation("campaign template is required")
	}
	if c.TenantCode == "" {
		return errs.Validation("campaign tenant code is required")
	}
	if c.SendMode != SendImmediate && c.SendMode != SendScheduled {
		return errs.Validation("campaign send mode must be immediate or scheduled")
	}
	return nil
}

// Editable reports whether the campaign may still be modified.
func (c *Campaign) Editable() bool {
	return c.Status == StatusDraft || c.Status == StatusScheduled
}
