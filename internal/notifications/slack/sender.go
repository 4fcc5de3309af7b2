// Package slack posts status change notifications to Slack incoming webhooks.
package slack

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/notifications"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "Statusboard"
	// Slack rejects header blocks longer than this.
	maxHeaderLength = 150
)

// Config holds Slack sender configuration.
type Config struct {
	Username string
	IconURL  string
	Timeout  time.Duration
}

// Sender implements notifications.Sender for Slack.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new Slack sender.
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
	return domain.ChannelTypeSlack
}

// Send posts the notification as a header block followed by a mrkdwn section.
// Text carries the plain fallback shown in push notifications.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if notification.To == "" {
		return &notifications.WebhookError{Channel: domain.ChannelTypeSlack, Message: "webhook URL is empty"}
	}

	msg := &slack.WebhookMessage{
		Username: s.config.Username,
		IconURL:  s.config.IconURL,
		Text:     notification.Subject,
		Blocks:   &slack.Blocks{BlockSet: buildBlocks(notification)},
	}
	if msg.Text == "" {
		msg.Text = notification.Body
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, notification.To, s.httpClient, msg); err != nil {
		return classify(err)
	}
	return nil
}

func buildBlocks(notification notifications.Notification) []slack.Block {
	var blocks []slack.Block
	if notification.Subject != "" {
		blocks = append(blocks, slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, truncate(notification.Subject, maxHeaderLength), true, false),
		))
	}
	blocks = append(blocks, slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, notification.Body, false, false),
		nil,
		nil,
	))
	return blocks
}

// classify maps slack-go errors onto notifications.WebhookError.
// Status code errors know whether they are retryable; anything else is a transport failure.
func classify(err error) error {
	result := &notifications.WebhookError{
		Channel:   domain.ChannelTypeSlack,
		Message:   err.Error(),
		Retryable: true,
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		result.Code = statusErr.Code
		result.Retryable = statusErr.Retryable()
		return result
	}

	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		result.Code = http.StatusTooManyRequests
		return result
	}

	return result
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
