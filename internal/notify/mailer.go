// Package notify sends invitation email and local desktop notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Mailer sends one email. Implementations are used best-effort by the sharing
// service: a send failure is logged, never propagated.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// HTTPMailer sends email through a JSON mail API (resend-style).
type HTTPMailer struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// NewHTTPMailer returns a mailer for the given API key and sender.
// Returns nil when apiKey is empty (email disabled).
func NewHTTPMailer(apiKey, from, baseURL string) *HTTPMailer {
	if apiKey == "" {
		return nil
	}
	return &HTTPMailer{
		apiKey:  apiKey,
		from:    from,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the email to the mail API. Returns an error on network failure or non-2xx status.
func (m *HTTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload := map[string]interface{}{
		"from":    m.from,
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail send returned status %d", resp.StatusCode)
	}
	return nil
}

// InvitationEmail builds the subject and HTML body for a sharing invitation.
// The link points at the web app's accept screen; the credential itself is
// never included.
func InvitationEmail(appURL, ownerEmail, serviceName, invitationID string) (subject, htmlBody string) {
	subject = fmt.Sprintf("%s shared a %s login with you", ownerEmail, serviceName)
	link := fmt.Sprintf("%s/shared/accept?id=%s", appURL, invitationID)
	htmlBody = fmt.Sprintf(`
<div style="max-width: 600px; margin: 0 auto; font-family: sans-serif;">
  <h2>Shared access to %s</h2>
  <p><strong>%s</strong> is sharing a login for <strong>%s</strong> with you.</p>
  <p>You can sign in without ever seeing the password, and the owner can revoke
  access at any time.</p>
  <p><a href="%s" style="display: inline-block; background: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Accept invitation</a></p>
</div>
`, serviceName, ownerEmail, serviceName, link)
	return subject, htmlBody
}
