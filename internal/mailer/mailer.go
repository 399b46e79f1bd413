// Package mailer delivers club invitation emails through a Resend-compatible
// HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/sgtreasury/tally/internal/logger"
)

// Invite is the content of an invitation email.
type Invite struct {
	To        string
	ClubName  string
	Role      string
	ExpiresAt time.Time
	AcceptURL string
}

// Sender delivers invitation emails.
type Sender interface {
	SendInvite(ctx context.Context, invite Invite) error
}

// HTTPSender posts emails to a Resend-style /emails endpoint.
type HTTPSender struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// NewHTTPSender creates an HTTPSender.
func NewHTTPSender(baseURL, apiKey, from string, timeout time.Duration) *HTTPSender {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = "https://api.resend.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSender{
		baseURL: trimmed,
		apiKey:  apiKey,
		from:    from,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SendInvite sends one invitation email. A non-2xx response is an error
// carrying the status code and the provider's message.
func (s *HTTPSender) SendInvite(ctx context.Context, invite Invite) error {
	if strings.TrimSpace(invite.To) == "" {
		return errors.New("recipient is required")
	}

	html, text, err := render(invite)
	if err != nil {
		return err
	}

	body, err := json.Marshal(sendRequest{
		From:    s.from,
		To:      []string{invite.To},
		Subject: subject(invite),
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email API returned status %d: %s", resp.StatusCode, providerMessage(msg))
	}
	return nil
}

func providerMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// LogSender logs invitations instead of sending them.
type LogSender struct{}

// SendInvite implements Sender.
func (LogSender) SendInvite(_ context.Context, invite Invite) error {
	logger.Log.Info().
		Str("to_hash", logger.HashEmail(invite.To)).
		Str("club", invite.ClubName).
		Str("role", invite.Role).
		Time("expires_at", invite.ExpiresAt).
		Msg("Email delivery disabled, invite not sent")
	return nil
}

func subject(invite Invite) string {
	return fmt.Sprintf("You're invited to join %s on Tally", invite.ClubName)
}

var htmlTemplate = template.Must(template.New("invite").Parse(`<p>Hello,</p>
<p>You have been invited to join <strong>{{.ClubName}}</strong> as a {{.Role}}.</p>
<p><a href="{{.AcceptURL}}">Accept the invitation</a></p>
<p>This invitation expires on {{.ExpiresAt.Format "January 2, 2006 at 3:04 PM MST"}}.</p>`))

func render(invite Invite) (string, string, error) {
	var html bytes.Buffer
	if err := htmlTemplate.Execute(&html, invite); err != nil {
		return "", "", fmt.Errorf("failed to render email: %w", err)
	}
	text := fmt.Sprintf("You have been invited to join %s as a %s.\nAccept: %s\nThis invitation expires on %s.\n",
		invite.ClubName, invite.Role, invite.AcceptURL, invite.ExpiresAt.Format("January 2, 2006 at 3:04 PM MST"))
	return html.String(), text, nil
}
