// Package track implements the public, unauthenticated endpoints that
// record recipient interactions with a simulation email.
package track

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/metrics"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
)

// transparent 1x1 GIF served by the open endpoint.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// statusRank orders the derived status labels so a later interaction
// never downgrades an earlier, stronger one.
var statusRank = map[string]int{
	model.RecipientCreated:   0,
	model.RecipientSendError: 1,
	model.RecipientSent:      1,
	model.RecipientOpened:    2,
	model.RecipientClicked:   3,
	model.RecipientSubmitted: 4,
	model.RecipientReported:  5,
}

// Handler serves the four tracking operations.
type Handler struct {
	campaigns  *repo.Campaigns
	recipients *repo.Recipients
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewHandler creates the tracking handler. metrics may be nil.
func NewHandler(campaigns *repo.Campaigns, recipients *repo.Recipients, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		campaigns:  campaigns,
		recipients: recipients,
		metrics:    m,
		logger:     logger.With("component", "tracking"),
		now:        time.Now,
	}
}

// Register mounts the tracking routes. These are public by design:
// mail clients and recipients hit them without credentials.
func (h *Handler) Register(r chi.Router) {
	r.Get("/phishing/track/open/{campaignID}/{recipientID}", h.handleOpen)
	r.Get("/phishing/track/click/{campaignID}/{recipientID}", h.handleClick)
	r.Post("/phishing/track/submit/{campaignID}/{recipientID}", h.handleSubmit)
	r.Post("/phishing/track/report/{campaignID}/{recipientID}", h.handleReport)
}

// handleOpen records an open and always answers with the pixel. A
// missing recipient or a store failure must not be visible to the
// remote mail client.
func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	recipientID := chi.URLParam(r, "recipientID")

	if err := h.record(campaignID, recipientID, "open"); err != nil {
		h.logger.Debug("open not recorded", "campaign_id", campaignID, "recipient_id", recipientID, "error", err)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(pixelGIF)
}

// handleClick records a click, then redirects to the campaign landing
// page or serves the educational page.
func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	recipientID := chi.URLParam(r, "recipientID")

	if err := h.record(campaignID, recipientID, "click"); err != nil {
		h.logger.Debug("click not recorded", "campaign_id", campaignID, "recipient_id", recipientID, "error", err)
	}

	if c, err := h.campaigns.Get(campaignID); err == nil && c.LandingPageID != "" {
		http.Redirect(w, r, "/phishing/landing/"+c.LandingPageID, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(educationalPage))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.handleAck(w, r, "submit")
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	h.handleAck(w, r, "report")
}

// handleAck records submit/report events and answers with a JSON
// acknowledgment.
func (h *Handler) handleAck(w http.ResponseWriter, r *http.Request, event string) {
	campaignID := chi.URLParam(r, "campaignID")
	recipientID := chi.URLParam(r, "recipientID")

	if err := h.record(campaignID, recipientID, event); err != nil {
		status := http.StatusInternalServerError
		if errs.KindOf(err) == errs.KindNotFound {
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "could not record event"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// record performs the idempotent read-modify-write for one event. The
// flag is monotonic: a repeated event is a no-op and the timestamp
// keeps its first-occurrence value.
func (h *Handler) record(campaignID, recipientID, event string) error {
	c, err := h.campaigns.Get(campaignID)
	if err != nil {
		return err
	}
	if !trackingEnabled(c, event) {
		return nil
	}

	rec, err := h.recipients.Get(campaignID, recipientID)
	if err != nil {
		return err
	}

	now := h.now()
	var changed bool
	var label string

	switch event {
	case "open":
		label = model.RecipientOpened
		if !rec.Opened {
			rec.Opened = true
			rec.OpenedAt = &now
			changed = true
		}
	case "click":
		label = model.RecipientClicked
		if !rec.Clicked {
			rec.Clicked = true
			rec.ClickedAt = &now
			changed = true
		}
	case "submit":
		label = model.RecipientSubmitted
		if !rec.Submitted {
			rec.Submitted = true
			rec.SubmittedAt = &now
			changed = true
		}
	case "report":
		label = model.RecipientReported
		if !rec.Reported {
			rec.Reported = true
			rec.ReportedAt = &now
			changed = true
		}
	}

	if !changed {
		return nil
	}
	if statusRank[label] > statusRank[rec.Status] {
		rec.Status = label
	}
	if err := h.recipients.Save(rec); err != nil {
		return err
	}

	if h.metrics != nil {
		h.metrics.TrackingEventsTotal.WithLabelValues(event).Inc()
	}
	h.logger.Info("interaction recorded",
		"campaign_id", campaignID,
		"recipient_id", recipientID,
		"event", event,
	)
	return nil
}

func trackingEnabled(c *model.Campaign, event string) bool {
	switch event {
	case "open":
		return c.Tracking.Opens
	case "click":
		return c.Tracking.Clicks
	case "submit":
		return c.Tracking.Submissions
	case "report":
		return c.Tracking.Reports
	default:
		return false
	}
}

const educationalPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Security Awareness Exercise</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 40px auto; padding: 0 16px; color: #222; }
h1 { color: #b00020; }
li { margin: 8px 0; }
</style>
</head>
<body>
<h1>This was a phishing simulation</h1>
<p>The email that brought you here was part of a security awareness
exercise run by your organization. No data was collected and nothing
happened to your account.</p>
<p>Signs that could have given it away:</p>
<ul>
<li>An unexpected sender address or a lookalike domain.</li>
<li>Urgency and deadlines pressuring you to act immediately.</li>
<li>Links whose real destination does not match the displayed text.</li>
<li>Requests for credentials, payments or personal data.</li>
</ul>
<p>When in doubt, report the email to your IT security team instead of
clicking.</p>
</body>
</html>
`
