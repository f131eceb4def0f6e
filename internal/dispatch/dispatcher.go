// Package dispatch drains a campaign's recipient list through the
// external transport, one send at a time.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/metrics"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/render"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/transport"
)

// Result aggregates one dispatch run. Errors holds per-recipient
// failure messages in send order.
type Result struct {
	Sent    int
	Failed  int
	Errors  []string
	Aborted bool
}

// Dispatcher performs a single best-effort pass over a recipient list.
// Sends are strictly sequential with a fixed inter-send delay because
// the transport enforces a rate limit; the dispatcher never retries a
// failed send.
type Dispatcher struct {
	renderer   *render.Renderer
	mailer     transport.Mailer
	campaigns  *repo.Campaigns
	recipients *repo.Recipients
	metrics    *metrics.Metrics
	logger     *slog.Logger

	baseURL string
	delay   time.Duration
}

// New creates a dispatcher. metrics may be nil.
func New(
	renderer *render.Renderer,
	mailer transport.Mailer,
	campaigns *repo.Campaigns,
	recipients *repo.Recipients,
	m *metrics.Metrics,
	baseURL string,
	delay time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		renderer:   renderer,
		mailer:     mailer,
		campaigns:  campaigns,
		recipients: recipients,
		metrics:    m,
		baseURL:    baseURL,
		delay:      delay,
		logger:     logger.With("component", "dispatcher"),
	}
}

// Run sends one email per recipient in order. A render or transport
// failure is recorded against the recipient and the batch continues;
// the run aborts early only when the campaign leaves the running
// status or the context is cancelled. The outcome is reported through
// recipient records, logs and metrics only.
func (d *Dispatcher) Run(ctx context.Context, campaign *model.Campaign, tmpl *model.Template, list []*model.Recipient) *Result {
	start := time.Now()
	result := &Result{}

	d.logger.Info("dispatch started",
		"campaign_id", campaign.ID,
		"template_id", tmpl.ID,
		"recipients", len(list),
		"delay", d.delay,
	)

	for i, rec := range list {
		if i > 0 {
			if !d.wait(ctx) {
				result.Aborted = true
				break
			}
			if !d.stillRunning(campaign.ID) {
				d.logger.Info("dispatch aborted, campaign no longer running", "campaign_id", campaign.ID)
				result.Aborted = true
				break
			}
		}

		d.sendOne(ctx, campaign, tmpl, rec, result)
	}

	if d.metrics != nil {
		d.metrics.DispatchRunsTotal.Inc()
		d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}

	d.logger.Info("dispatch finished",
		"campaign_id", campaign.ID,
		"sent", result.Sent,
		"failed", result.Failed,
		"aborted", result.Aborted,
		"duration", time.Since(start),
	)
	return result
}

func (d *Dispatcher) sendOne(ctx context.Context, campaign *model.Campaign, tmpl *model.Template, rec *model.Recipient, result *Result) {
	rendered, err := d.renderer.Render(tmpl, campaign, rec, d.baseURL)
	if err != nil {
		d.recordFailure(rec, result, "render", err)
		return
	}

	msg := &transport.Message{
		SenderName:    rendered.SenderName,
		SenderEmail:   rendered.SenderEmail,
		To:            rec.Email,
		Subject:       rendered.Subject,
		HTML:          rendered.HTML,
		Text:          rendered.Text,
		CorrelationID: campaign.ID + ":" + rec.ID,
	}

	receipt, err := d.mailer.Send(ctx, msg)
	if err != nil {
		d.recordFailure(rec, result, "transport", err)
		return
	}

	now := time.Now()
	rec.SentAt = &now
	rec.SendError = ""
	rec.Status = model.RecipientSent
	if err := d.recipients.Save(rec); err != nil {
		d.logger.Error("failed to record send", "recipient_id", rec.ID, "error", err)
	}

	result.Sent++
	if d.metrics != nil {
		d.metrics.EmailsSentTotal.Inc()
	}
	d.logger.Debug("email dispatched",
		"campaign_id", campaign.ID,
		"recipient_id", rec.ID,
		"message_id", receipt.MessageID,
	)
}

func (d *Dispatcher) recordFailure(rec *model.Recipient, result *Result, reason string, err error) {
	result.Failed++
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.Email, err))

	rec.SendError = err.Error()
	rec.Status = model.RecipientSendError
	if saveErr := d.recipients.Save(rec); saveErr != nil {
		d.logger.Error("failed to record send error", "recipient_id", rec.ID, "error", saveErr)
	}

	if d.metrics != nil {
		d.metrics.EmailsFailedTotal.WithLabelValues(reason).Inc()
	}
	d.logger.Warn("send failed",
		"campaign_id", rec.CampaignID,
		"recipient_id", rec.ID,
		"reason", reason,
		"error", err,
	)
}

// wait sleeps the inter-send delay, returning false when the context
// is cancelled first.
func (d *Dispatcher) wait(ctx context.Context) bool {
	if d.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// stillRunning re-reads the campaign between sends so a stop request
// halts the remaining batch.
func (d *Dispatcher) stillRunning(campaignID string) bool {
	c, err := d.campaigns.Get(campaignID)
	if err != nil {
		// A read failure is not a stop signal. Keep sending; the
		// store error is logged and the next poll retries.
		if errs.KindOf(err) != errs.KindNotFound {
			d.logger.Error("failed to poll campaign status", "campaign_id", campaignID, "error", err)
			return true
		}
		return false
	}
	return c.Status == model.StatusRunning
}
