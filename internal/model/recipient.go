package model

import (
	"strings"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
)

// Recipient statuses, derived from send metadata and interaction flags.
const (
	RecipientCreated   = "created"
	RecipientSent      = "sent"
	RecipientSendError = "send_error"
	RecipientOpened    = "opened"
	RecipientClicked   = "clicked"
	RecipientSubmitted = "submitted"
	RecipientReported  = "reported"
)

// Recipient is one target of a campaign. Interaction flags are
// monotonic: once set they never revert, and each timestamp is written
// only on the false-to-true transition.
type Recipient struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaignId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Site       string `json:"site,omitempty"`

	Opened      bool       `json:"opened"`
	OpenedAt    *time.Time `json:"openedAt,omitempty"`
	Clicked     bool       `json:"clicked"`
	ClickedAt   *time.Time `json:"clickedAt,omitempty"`
	Submitted   bool       `json:"submitted"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	Reported    bool       `json:"reported"`
	ReportedAt  *time.Time `json:"reportedAt,omitempty"`

	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	SendError string     `json:"sendError,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Validate checks the fields required before a recipient may be stored.
func (r *Recipient) Validate() error {
	if r.CampaignID == "" {
		return errs.Validation("recipient campaign id is required")
	}
	if !strings.Contains(r.Email, "@") {
		return errs.Validation("recipient email %q is malformed", r.Email)
	}
	return nil
}

// EmailDomain returns the part after the last @, lowercased.
func (r *Recipient) EmailDomain() string {
	i := strings.LastIndex(r.Email, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(r.Email[i+1:])
}

// SplitName splits the display name into first name (first token) and
// last name (remainder).
func (r *Recipient) SplitName() (first, last string) {
	fields := strings.Fields(r.Name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
