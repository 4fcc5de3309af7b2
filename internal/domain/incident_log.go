package domain

import "time"

// IncidentLog records an interval during which a service was not fully operational.
// FinishedAt is nil while the incident is ongoing.
type IncidentLog struct {
	CompanyScoped
	ServiceID  string        `json:"service_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at"`
	Reason     string        `json:"reason"`
	Status     ServiceStatus `json:"status"`
}

// IsOpen reports whether the incident is still ongoing.
func (l *IncidentLog) IsOpen() bool {
	return l.FinishedAt == nil
}

// EndOr returns FinishedAt, or now when the incident is still open.
func (l *IncidentLog) EndOr(now time.Time) time.Time {
	if l.FinishedAt == nil {
		return now
	}
	return *l.FinishedAt
}
