package model

import (
	"strings"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
)

// Template is a phishing email template. Global templates are seeded
// at bootstrap and visible to every tenant; custom templates belong to
// the tenant named by TenantCode.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	SenderName  string    `json:"senderName"`
	SenderEmail string    `json:"senderEmail"` // may contain {{placeholders}}, resolved per recipient
	Subject     string    `json:"subject"`
	BodyHTML    string    `json:"bodyHtml"`
	BodyText    string    `json:"bodyText"`
	IsGlobal    bool      `json:"isGlobal"`
	TenantCode  string    `json:"tenantCode,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the fields required before a template may be stored.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errs.Validation("template name is required")
	}
	if strings.TrimSpace(t.Subject) == "" {
		return errs.Validation("template subject is required")
	}
	if t.BodyHTML == "" && t.BodyText == "" {
		return errs.Validation("template needs an html or text body")
	}
	if !t.IsGlobal && t.TenantCode == "" {
		return errs.Validation("custom template requires a tenant code")
	}
	return nil
}

// VisibleTo reports whether a tenant may use this template.
func (t *Template) VisibleTo(tenantCode string) bool {
	return t.IsGlobal || t.TenantCode == tenantCode
}
