// Package seed installs the built-in global phishing templates.
package seed

import (
	"log/slog"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
)

// GlobalTemplates returns the built-in template set. IDs are stable so
// re-seeding updates in place instead of duplicating.
func GlobalTemplates() []*model.Template {
	now := time.Now()
	return []*model.Template{
		{
			ID:          "global-password-expiry",
			Name:        "Password expiry notice",
			Category:    "credentials",
			SenderName:  "IT Support",
			SenderEmail: "it-support@{{company_domain}}",
			Subject:     "Action required: your password expires today",
			BodyHTML: `<html><body>
<p>Dear {{first_name}},</p>
<p>Your {{company_name}} account password expires on {{current_date}}.
To avoid losing access, confirm your credentials before
{{deadline_date}}:</p>
<p><a href="{{tracking_link}}">Renew my password</a></p>
<p>IT Support</p>
</body></html>`,
			BodyText: `Dear {{first_name}},

Your {{company_name}} account password expires on {{current_date}}.
To avoid losing access, confirm your credentials before {{deadline_date}}:

{{tracking_link}}

IT Support`,
			IsGlobal:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "global-invoice-payment",
			Name:        "Outstanding invoice",
			Category:    "finance",
			SenderName:  "Accounting",
			SenderEmail: "invoices@{{company_domain}}",
			Subject:     "Invoice {{reference_number}} overdue",
			BodyHTML: `<html><body>
<p>Hello {{first_name}} {{last_name}},</p>
<p>Invoice {{reference_number}} for {{amount}} is overdue. Please
review and approve the payment before {{deadline_date}} to avoid late
fees:</p>
<p><a href="{{tracking_link}}">View invoice</a></p>
<p>Accounting department</p>
</body></html>`,
			BodyText: `Hello {{first_name}} {{last_name}},

Invoice {{reference_number}} for {{amount}} is overdue. Review it
before {{deadline_date}}:

{{tracking_link}}

Accounting department`,
			IsGlobal:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "global-ceo-request",
			Name:        "Urgent request from management",
			Category:    "impersonation",
			SenderName:  "{{ceo_name}}",
			SenderEmail: "ceo@{{company_domain}}",
			Subject:     "Quick favor - confidential",
			BodyHTML: `<html><body>
<p>{{first_name}},</p>
<p>I am in a meeting and need you to handle something discreetly
today. Open the document below and follow the instructions. Keep this
between us for now.</p>
<p><a href="{{tracking_link}}">Confidential document</a></p>
<p>{{ceo_name}}</p>
</body></html>`,
			BodyText: `{{first_name}},

I am in a meeting and need you to handle something discreetly today.
Open the document and follow the instructions. Keep this between us.

{{tracking_link}}

{{ceo_name}}`,
			IsGlobal:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Install writes the global template set to the store.
func Install(templates *repo.Templates, logger *slog.Logger) error {
	for _, t := range GlobalTemplates() {
		if err := templates.Save(t); err != nil {
			return err
		}
		logger.Info("template seeded", "template_id", t.ID, "name", t.Name)
	}
	return nil
}
