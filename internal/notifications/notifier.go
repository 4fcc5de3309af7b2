// Package notifications tells company webhooks about service status changes.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Songmu/retry"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/bissquit/statusboard/internal/pkg/metrics"
	"github.com/bissquit/statusboard/internal/status"
)

// CompanyReader resolves the company whose settings hold the webhook URLs.
type CompanyReader interface {
	GetCompany(ctx context.Context, id string) (*domain.Company, error)
}

// Config configures delivery.
type Config struct {
	RetryAttempts uint
	RetryInterval time.Duration
	// Timeout bounds the delivery of one transition to all channels.
	Timeout time.Duration
}

// Notifier implements status.ChangeNotifier by posting to the company's webhooks.
// Delivery runs in the background so a slow webhook never delays the request.
type Notifier struct {
	companies CompanyReader
	renderer  *Renderer
	senders   map[domain.ChannelType]Sender
	cfg       Config
	wg        sync.WaitGroup
}

// NewNotifier creates a new Notifier.
func NewNotifier(companies CompanyReader, renderer *Renderer, cfg Config, senders ...Sender) *Notifier {
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	n := &Notifier{
		companies: companies,
		renderer:  renderer,
		senders:   make(map[domain.ChannelType]Sender, len(senders)),
		cfg:       cfg,
	}
	for _, s := range senders {
		n.senders[s.Type()] = s
	}
	return n
}

// OnStatusChanged schedules delivery of the transition and returns immediately.
func (n *Notifier) OnStatusChanged(ctx context.Context, t status.Transition) error {
	logger := ctxlog.FromContext(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.Timeout)
		defer cancel()

		if err := n.Deliver(deliverCtx, t); err != nil {
			logger.Error("status change notification failed", "service_id", t.Service.ID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until all scheduled deliveries finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Deliver sends the transition to every webhook configured for the company.
func (n *Notifier) Deliver(ctx context.Context, t status.Transition) error {
	company, err := n.companies.GetCompany(ctx, t.Service.CompanyID)
	if err != nil {
		return fmt.Errorf("get company: %w", err)
	}

	targets := map[domain.ChannelType]string{
		domain.ChannelTypeMattermost: company.Settings.MattermostWebhookURL,
		domain.ChannelTypeSlack:      company.Settings.SlackWebhookURL,
	}

	payload := buildPayload(company, t)

	var failed int
	for channelType, url := range targets {
		if url == "" {
			continue
		}
		sender, ok := n.senders[channelType]
		if !ok {
			slog.Warn("no sender for channel type", "channel_type", channelType)
			continue
		}

		subject, body, err := n.renderer.Render(channelType, payload)
		if err != nil {
			return fmt.Errorf("render %s: %w", channelType, err)
		}

		if err := n.send(ctx, sender, Notification{To: url, Subject: subject, Body: body}); err != nil {
			failed++
			metrics.NotificationsSent.WithLabelValues(string(channelType), "failed").Inc()
			slog.Error("failed to send notification",
				"channel_type", channelType,
				"service_id", t.Service.ID,
				"error", err,
			)
			continue
		}
		metrics.NotificationsSent.WithLabelValues(string(channelType), "success").Inc()
	}

	if failed > 0 {
		return fmt.Errorf("%d notification(s) failed", failed)
	}
	return nil
}

// send retries temporary failures. A permanent failure stops the loop at once.
func (n *Notifier) send(ctx context.Context, sender Sender, notification Notification) error {
	var permanent error
	err := retry.Retry(n.cfg.RetryAttempts, n.cfg.RetryInterval, func() error {
		err := sender.Send(ctx, notification)
		if err != nil && !IsRetryable(err) {
			permanent = err
			return nil
		}
		return err
	})
	if permanent != nil {
		return permanent
	}
	return err
}

func buildPayload(company *domain.Company, t status.Transition) StatusChangePayload {
	p := StatusChangePayload{
		CompanyName: company.Name,
		ServiceName: t.Service.Name,
		From:        t.From,
		To:          t.To,
		Reason:      t.Reason,
		At:          t.At,
	}

	switch {
	case !t.To.IsDegraded():
		p.MessageType = MessageTypeRecovered
		p.Reason = ""
	case t.From.IsDegraded():
		p.MessageType = MessageTypeEscalated
	default:
		p.MessageType = MessageTypeDegraded
	}

	if t.Closed != nil && t.Closed.FinishedAt != nil && p.MessageType == MessageTypeRecovered {
		p.Downtime = t.Closed.FinishedAt.Sub(t.Closed.StartedAt)
	}
	return p
}
