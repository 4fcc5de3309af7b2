package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/statusboard/internal/domain"
)

// Notification is a rendered message addressed to one webhook.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers notifications over one channel type.
type Sender interface {
	Type() domain.ChannelType
	Send(ctx context.Context, notification Notification) error
}

// IsRetryable reports whether a send error is temporary.
// Errors that do not classify themselves are treated as permanent.
func IsRetryable(err error) bool {
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// WebhookError is a failed webhook delivery.
type WebhookError struct {
	Channel   domain.ChannelType
	Code      int
	Message   string
	Retryable bool
}

func (e *WebhookError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s error %d: %s", e.Channel, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Channel, e.Message)
}

// IsRetryable reports whether the delivery may succeed when repeated.
func (e *WebhookError) IsRetryable() bool { return e.Retryable }
