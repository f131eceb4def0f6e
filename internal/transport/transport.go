// Package transport defines the outbound email contract used by the
// batch dispatcher and its SMTP submission implementation.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one email handed to the transport.
type Message struct {
	SenderName    string
	SenderEmail   string
	To            string
	Subject       string
	HTML          string
	Text          string
	CorrelationID string
}

// Receipt is the transport's per-message acknowledgment.
type Receipt struct {
	MessageID string
}

// Mailer sends a single message. Implementations report failure
// through the returned error; the dispatcher never retries.
type Mailer interface {
	Send(ctx context.Context, msg *Message) (*Receipt, error)
}

// From formats the RFC 5322 originator for msg.
func (m *Message) From() string {
	if m.SenderName == "" {
		return m.SenderEmail
	}
	return fmt.Sprintf("%s <%s>", m.SenderName, m.SenderEmail)
}

// Encode builds the RFC 5322 wire form of the message, multipart when
// both bodies are present.
func (m *Message) Encode() []byte {
	var buf bytes.Buffer

	msgID := uuid.New().String()
	buf.WriteString(fmt.Sprintf("From: %s\r\n", m.From()))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", m.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", m.Subject))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", msgID, emailDomain(m.SenderEmail)))
	if m.CorrelationID != "" {
		buf.WriteString(fmt.Sprintf("X-Correlation-ID: %s\r\n", m.CorrelationID))
	}

	if m.HTML != "" && m.Text != "" {
		boundary := uuid.New().String()
		buf.WriteString("MIME-Version: 1.0\r\n")
		buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", boundary))
		buf.WriteString("\r\n")

		buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		buf.WriteString("\r\n")
		buf.WriteString(m.Text)
		buf.WriteString("\r\n")

		buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
		buf.WriteString("\r\n")
		buf.WriteString(m.HTML)
		buf.WriteString("\r\n")

		buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
		return buf.Bytes()
	}

	if m.HTML != "" {
		buf.WriteString("MIME-Version: 1.0\r\n")
		buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
		buf.WriteString("\r\n")
		buf.WriteString(m.HTML)
		buf.WriteString("\r\n")
		return buf.Bytes()
	}

	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(m.Text)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func emailDomain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return "localhost"
	}
	return email[i+1:]
}
