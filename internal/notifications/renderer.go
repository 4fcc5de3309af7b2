package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders notifications from templates.
type Renderer struct {
	templates map[domain.ChannelType]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"status":         statusLabel,
		"formatTime":     formatTime,
		"formatDuration": formatDuration,
		"statusEmoji":    statusEmoji,
	}

	r := &Renderer{templates: make(map[domain.ChannelType]*template.Template)}

	for _, channel := range []domain.ChannelType{domain.ChannelTypeMattermost, domain.ChannelTypeSlack} {
		filename := fmt.Sprintf("templates/%s.tmpl", channel)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(string(channel)).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", channel, err)
		}

		r.templates[channel] = tmpl
	}

	return r, nil
}

// Render renders a status change for the specified channel type.
// Returns subject and body.
func (r *Renderer) Render(channelType domain.ChannelType, payload StatusChangePayload) (subject, body string, err error) {
	tmpl, ok := r.templates[channelType]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", channelType)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", channelType, err)
	}

	return renderSubject(payload), strings.TrimSpace(buf.String()), nil
}

func renderSubject(payload StatusChangePayload) string {
	var prefix string
	switch payload.MessageType {
	case MessageTypeDegraded:
		prefix = "Incident"
	case MessageTypeEscalated:
		prefix = "Update"
	case MessageTypeRecovered:
		prefix = "Resolved"
	default:
		prefix = "Notification"
	}

	return fmt.Sprintf("[%s] %s is %s", prefix, payload.ServiceName, statusLabel(payload.To))
}

// Template functions

var titleCaser = cases.Title(language.English)

// statusLabel turns "partial_outage" into "Partial Outage".
func statusLabel(s domain.ServiceStatus) string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

func statusEmoji(s domain.ServiceStatus) string {
	switch s {
	case domain.ServiceStatusOperational:
		return "✅"
	case domain.ServiceStatusDegradedPerformance:
		return "🟡"
	case domain.ServiceStatusPartialOutage:
		return "🟠"
	case domain.ServiceStatusMajorOutage:
		return "🔴"
	default:
		return "📋"
	}
}
