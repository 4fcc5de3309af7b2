package notifications

import (
	"time"

	"github.com/bissquit/statusboard/internal/domain"
)

// MessageType selects the template used for a status change.
type MessageType string

// Message types.
const (
	MessageTypeDegraded  MessageType = "degraded"
	MessageTypeEscalated MessageType = "changed"
	MessageTypeRecovered MessageType = "recovered"
)

// StatusChangePayload is the template data of a status change message.
type StatusChangePayload struct {
	MessageType MessageType
	CompanyName string
	ServiceName string
	From        domain.ServiceStatus
	To          domain.ServiceStatus
	Reason      string
	At          time.Time
	// Downtime is set when a recovery closed an incident.
	Downtime time.Duration
}
