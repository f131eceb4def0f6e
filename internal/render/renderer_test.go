package render

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCampaign() *model.Campaign {
	return &model.Campaign{
		ID:         "camp-1",
		TenantName: "Acme Corp",
	}
}

func testRecipient() *model.Recipient {
	return &model.Recipient{
		ID:    "rec-1",
		Email: "alice@acme.com",
		Name:  "Alice Van Der Berg",
	}
}

func TestRender_Substitution(t *testing.T) {
	r := New(testLogger())

	tmpl := &model.Template{
		SenderName:  "IT",
		SenderEmail: "it@example.com",
		Subject:     "Hello {{first_name}}",
		BodyHTML:    "<html><body><p>{{ first_name }} {{last_name}} at {{company_name}} ({{company_domain}})</p></body></html>",
		BodyText:    "Hi {{first_name}}",
	}

	out, err := r.Render(tmpl, testCampaign(), testRecipient(), "https://portal.example.com")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if out.Subject != "Hello Alice" {
		t.Errorf("Subject = %q, want %q", out.Subject, "Hello Alice")
	}
	if !strings.Contains(out.HTML, "Alice Van Der Berg at Acme Corp (acme.com)") {
		t.Errorf("HTML missing substituted values: %q", out.HTML)
	}
	if out.Text != "Hi Alice" {
		t.Errorf("Text = %q, want %q", out.Text, "Hi Alice")
	}
}

func TestRender_TemplatedSenderEmail(t *testing.T) {
	r := New(testLogger())

	tmpl := &model.Template{
		SenderEmail: "it-security@{{company_domain}}",
		Subject:     "s",
		BodyText:    "t",
	}

	out, err := r.Render(tmpl, testCampaign(), testRecipient(), "https://portal.example.com")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.SenderEmail != "it-security@acme.com" {
		t.Errorf("SenderEmail = %q, want it-security@acme.com", out.SenderEmail)
	}
}

func TestRender_SenderEmailValidation(t *testing.T) {
	tests := []struct {
		name        string
		senderEmail string
	}{
		{"unresolved placeholder", "it@{{unknown_company}}"},
		{"no domain", "not-an-email"},
		{"missing tld", "it@localhost"},
	}

	r := New(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := &model.Template{SenderEmail: tt.senderEmail, Subject: "s", BodyText: "t"}

			_, err := r.Render(tmpl, testCampaign(), testRecipient(), "https://portal.example.com")
			if err == nil {
				t.Fatal("Render() succeeded, want TemplateConfig error")
			}
			if !errors.Is(err, errs.ErrTemplateConfig) {
				t.Errorf("Render() error kind = %v, want template_config", errs.KindOf(err))
			}
		})
	}
}

func TestRender_PixelInjection(t *testing.T) {
	r := New(testLogger())

	t.Run("before closing body tag", func(t *testing.T) {
		tmpl := &model.Template{
			SenderEmail: "it@example.com",
			Subject:     "s",
			BodyHTML:    "<html><BODY><p>hi</p></BODY></html>",
		}
		out, err := r.Render(tmpl, testCampaign(), testRecipient(), "https://portal.example.com")
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}

		pixel := `<img src="https://portal.example.com/phishing/track/open/camp-1/rec-1"`
		idx := strings.Index(out.HTML, pixel)
		if idx < 0 {
			t.Fatalf("HTML missing pixel: %q", out.HTML)
		}
		if !strings.HasPrefix(out.HTML[idx:], pixel) || !strings.Contains(out.HTML[idx:], "</BODY>") {
			t.Errorf("pixel not placed before closing body tag: %q", out.HTML)
		}
	})

	t.Run("multibyte text before the tag", func(t *testing.T) {
		// U+0130 lowercases to a longer byte sequence; the insertion
		// point must come from the original string, not a lowered copy.
		tmpl := &model.Template{
			SenderEmail: "it@example.com",
			Subject:     "s",
			BodyHTML:    "<html><BODY><p>İstanbul ofisi</p></BODY></html>",
		}
		out, err := r.Render(tmpl, testCampaign(), testRecipient(), "https://portal.example.com")
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if !strings.Contains(out.HTML, "<p>İstanbul ofisi</p><img ") {
			t.Errorf("pixel misplaced around multibyte text: %q", out.HTML)
		}
		if !strings.HasSuffix(out.HTML, "</BODY></html>") {
			t.Errorf("closing tags damaged: %q", out.HTML)
		}
	})

	t.Run("appended without body tag", func(t *testing.T) {
		tmpl := &model.Template{
			SenderEmail: "it@example.com",
			Subject:     "s",
			BodyHTML:    "<p>hi</p>",
		}
		out, err := r.Render(tmpl, testCampaign(), testRecipient(), "https://portal.example.com")
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if !strings.HasPrefix(out.HTML, "<p>hi</p><img ") {
			t.Errorf("pixel not appended: %q", out.HTML)
		}
	})
}

func TestRender_TrackingLink(t *testing.T) {
	r := New(testLogger())

	tmpl := &model.Template{
		SenderEmail: "it@example.com",
		Subject:     "s",
		BodyHTML:    `<html><body><a href="{{tracking_link}}">click</a></body></html>`,
	}

	out, err := r.Render(tmpl, testCampaign(), testRecipient(), "https://portal.example.com/")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "https://portal.example.com/phishing/track/click/camp-1/rec-1"
	if !strings.Contains(out.HTML, want) {
		t.Errorf("HTML missing click URL %q: %q", want, out.HTML)
	}
	if out.ClickURL != want {
		t.Errorf("ClickURL = %q, want %q", out.ClickURL, want)
	}
}

func TestRender_URLsUniquePerRecipient(t *testing.T) {
	r := New(testLogger())

	tmpl := &model.Template{SenderEmail: "it@example.com", Subject: "s", BodyText: "t"}
	campaign := testCampaign()

	a, err := r.Render(tmpl, campaign, &model.Recipient{ID: "rec-a", Email: "a@acme.com", Name: "A"}, "https://x.test")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	b, err := r.Render(tmpl, campaign, &model.Recipient{ID: "rec-b", Email: "b@acme.com", Name: "B"}, "https://x.test")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if a.PixelURL == b.PixelURL {
		t.Errorf("pixel URLs not unique: %q", a.PixelURL)
	}
	if a.ClickURL == b.ClickURL {
		t.Errorf("click URLs not unique: %q", a.ClickURL)
	}
}

func TestSubstitute_UnknownVariableKept(t *testing.T) {
	got := substitute("hello {{nobody}}", map[string]string{"first_name": "A"})
	if got != "hello {{nobody}}" {
		t.Errorf("substitute() = %q, want unknown token preserved", got)
	}
}
