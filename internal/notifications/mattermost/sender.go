// Package mattermost posts status change notifications to Mattermost incoming webhooks.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/notifications"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "Statusboard"
)

// Config holds Mattermost sender configuration.
// The webhook URL itself comes from the company settings.
type Config struct {
	Username string
	IconURL  string
	Timeout  time.Duration
}

// Sender implements notifications.Sender for Mattermost.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new Mattermost sender.
func NewSender(config Config) *Sender {
	if config.Username == "" {
		config.Username = defaultUsername
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeMattermost
}

type webhookPayload struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`
}

// Send posts the notification to the webhook in notification.To.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if notification.To == "" {
		return permanent(0, "webhook URL is empty")
	}

	payload := webhookPayload{
		Username: s.config.Username,
		IconURL:  s.config.IconURL,
		Text:     notification.Body,
	}
	if notification.Subject != "" {
		payload.Text = fmt.Sprintf("### %s\n\n%s", notification.Subject, notification.Body)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, notification.To, bytes.NewReader(body))
	if err != nil {
		return permanent(0, fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return retryable(0, fmt.Sprintf("send request: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	return checkResponse(resp, notification.To)
}

func checkResponse(resp *http.Response, webhookURL string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return retryable(resp.StatusCode, fmt.Sprintf("read response: %v", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		slog.Debug("mattermost message sent", "webhook", maskWebhookURL(webhookURL))
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return permanent(resp.StatusCode, "invalid or expired webhook")
	case resp.StatusCode == http.StatusNotFound:
		return permanent(resp.StatusCode, "webhook not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return retryable(resp.StatusCode, "rate limited")
	case resp.StatusCode >= 500:
		return retryable(resp.StatusCode, fmt.Sprintf("server error: %s", string(body)))
	}
	return permanent(resp.StatusCode, fmt.Sprintf("unexpected response: %s", string(body)))
}

// maskWebhookURL hides the secret part of the URL for logging.
func maskWebhookURL(url string) string {
	if len(url) > 40 {
		return url[:20] + "..." + url[len(url)-10:]
	}
	return url
}

func permanent(code int, msg string) error {
	return &notifications.WebhookError{Channel: domain.ChannelTypeMattermost, Code: code, Message: msg}
}

func retryable(code int, msg string) error {
	return &notifications.WebhookError{Channel: domain.ChannelTypeMattermost, Code: code, Message: msg, Retryable: true}
}
