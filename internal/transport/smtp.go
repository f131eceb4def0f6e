package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
)

// SMTPConfig configures the submission relay.
type SMTPConfig struct {
	Addr     string        `yaml:"addr"` // host:port
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	StartTLS bool          `yaml:"starttls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SMTPMailer submits messages through a single SMTP relay. One
// connection per message keeps failure isolation simple; the batch
// dispatcher's inter-send delay dominates connection cost anyway.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPMailer creates an SMTP transport.
func NewSMTPMailer(cfg SMTPConfig, logger *slog.Logger) *SMTPMailer {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger.With("component", "smtp_mailer"),
	}
}

// Send submits one message to the relay.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Transport("dispatch cancelled", err)
	}

	client, err := m.dial()
	if err != nil {
		return nil, errs.Transport("connect to relay", err)
	}
	defer client.Close()

	client.CommandTimeout = m.cfg.Timeout
	client.SubmissionTimeout = m.cfg.Timeout

	if m.cfg.Username != "" {
		auth := sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
		if err := client.Auth(auth); err != nil {
			return nil, errs.Transport("authenticate to relay", err)
		}
	}

	data := msg.Encode()
	if err := client.SendMail(msg.SenderEmail, []string{msg.To}, bytes.NewReader(data)); err != nil {
		return nil, errs.Transport(fmt.Sprintf("send to %s", msg.To), err)
	}

	m.logger.Debug("message submitted",
		"to", msg.To,
		"correlation_id", msg.CorrelationID,
		"bytes", len(data),
	)
	return &Receipt{MessageID: msg.CorrelationID}, nil
}

func (m *SMTPMailer) dial() (*smtp.Client, error) {
	if m.cfg.StartTLS {
		return smtp.DialStartTLS(m.cfg.Addr, &tls.Config{MinVersion: tls.VersionTLS12})
	}
	return smtp.Dial(m.cfg.Addr)
}
