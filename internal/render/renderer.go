// Package render turns a phishing template plus one recipient into
// the final email content, with tracking artifacts injected.
package render

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
)

// variable pattern for template substitution: {{variable_name}}
var varPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// senderPattern accepts a basic local@domain.tld shape.
var senderPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// bodyClosePattern locates the closing body tag in any casing.
var bodyClosePattern = regexp.MustCompile(`(?i)</body>`)

// Rendered is the per-recipient output of a render call.
type Rendered struct {
	Subject     string
	HTML        string
	Text        string
	SenderName  string
	SenderEmail string
	PixelURL    string
	ClickURL    string
}

// Renderer builds per-recipient email content. It is stateless; each
// Render call draws fresh random lure values, so two renders of the
// same template are not byte-identical.
type Renderer struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a renderer.
func New(logger *slog.Logger) *Renderer {
	return &Renderer{
		logger: logger.With("component", "renderer"),
		now:    time.Now,
	}
}

// Render substitutes template variables, derives the tracking URLs for
// this recipient, injects the tracking pixel, and validates the
// resolved sender address.
func (r *Renderer) Render(tmpl *model.Template, campaign *model.Campaign, recipient *model.Recipient, baseURL string) (*Rendered, error) {
	vars := r.buildVars(campaign, recipient, baseURL)

	out := &Rendered{
		Subject:     substitute(tmpl.Subject, vars),
		HTML:        substitute(tmpl.BodyHTML, vars),
		Text:        substitute(tmpl.BodyText, vars),
		SenderName:  substitute(tmpl.SenderName, vars),
		SenderEmail: substitute(tmpl.SenderEmail, vars),
		PixelURL:    PixelURL(baseURL, campaign.ID, recipient.ID),
		ClickURL:    ClickURL(baseURL, campaign.ID, recipient.ID),
	}

	out.HTML = injectPixel(out.HTML, out.PixelURL)

	if strings.Contains(out.SenderEmail, "{{") || strings.Contains(out.SenderEmail, "}}") {
		return nil, errs.TemplateConfig("sender email %q has unresolved placeholders", out.SenderEmail)
	}
	if !senderPattern.MatchString(out.SenderEmail) {
		return nil, errs.TemplateConfig("sender email %q is malformed", out.SenderEmail)
	}

	r.logger.Debug("rendered email",
		"campaign_id", campaign.ID,
		"recipient_id", recipient.ID,
		"sender", out.SenderEmail,
	)
	return out, nil
}

// PixelURL derives the tracking-pixel URL for one recipient.
func PixelURL(baseURL, campaignID, recipientID string) string {
	return fmt.Sprintf("%s/phishing/track/open/%s/%s", strings.TrimRight(baseURL, "/"), campaignID, recipientID)
}

// ClickURL derives the tracked-click URL for one recipient.
func ClickURL(baseURL, campaignID, recipientID string) string {
	return fmt.Sprintf("%s/phishing/track/click/%s/%s", strings.TrimRight(baseURL, "/"), campaignID, recipientID)
}

func (r *Renderer) buildVars(campaign *model.Campaign, recipient *model.Recipient, baseURL string) map[string]string {
	first, last := recipient.SplitName()
	now := r.now()

	return map[string]string{
		"first_name":       first,
		"last_name":        last,
		"full_name":        recipient.Name,
		"email":            recipient.Email,
		"company_name":     campaign.TenantName,
		"company_domain":   recipient.EmailDomain(),
		"ceo_name":         "Alexandre Dupont",
		"department":       recipient.Department,
		"site":             recipient.Site,
		"reference_number": fmt.Sprintf("REF-%06d", rand.IntN(1000000)),
		"amount":           fmt.Sprintf("%d,%02d EUR", 100+rand.IntN(9900), rand.IntN(100)),
		"current_date":     now.Format("02/01/2006"),
		"deadline_date":    now.AddDate(0, 0, 2).Format("02/01/2006"),
		"tracking_link":    ClickURL(baseURL, campaign.ID, recipient.ID),
	}
}

// substitute replaces {{variable}} tokens, whitespace-tolerant inside
// the braces. Unknown variables are left as-is.
func substitute(s string, vars map[string]string) string {
	if s == "" {
		return s
	}
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}

// injectPixel places an invisible 1x1 image before the closing body
// tag, or appends it when the document has none.
func injectPixel(html, pixelURL string) string {
	if html == "" {
		return html
	}
	img := fmt.Sprintf(`<img src=%q width="1" height="1" style="display:none" alt="">`, pixelURL)

	locs := bodyClosePattern.FindAllStringIndex(html, -1)
	if locs == nil {
		return html + img
	}
	idx := locs[len(locs)-1][0]
	return html[:idx] + img + html[idx:]
}
