package domain

// ServiceStatus represents the operational status of a service.
type ServiceStatus string

// Service statuses.
const (
	ServiceStatusOperational         ServiceStatus = "operational"
	ServiceStatusDegradedPerformance ServiceStatus = "degraded_performance"
	ServiceStatusPartialOutage       ServiceStatus = "partial_outage"
	ServiceStatusMajorOutage         ServiceStatus = "major_outage"
)

// IsValid checks if the service status is valid.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusOperational, ServiceStatusDegradedPerformance,
		ServiceStatusPartialOutage, ServiceStatusMajorOutage:
		return true
	}
	return false
}

// IsDegraded reports whether the status is one of the inactive states.
func (s ServiceStatus) IsDegraded() bool {
	return s.IsValid() && s != ServiceStatusOperational
}

// Severity orders statuses from operational (0) to major outage (3).
// Unknown statuses rank as operational.
func (s ServiceStatus) Severity() int {
	switch s {
	case ServiceStatusDegradedPerformance:
		return 1
	case ServiceStatusPartialOutage:
		return 2
	case ServiceStatusMajorOutage:
		return 3
	}
	return 0
}

// Service represents a monitored unit of a company's infrastructure.
type Service struct {
	CompanyScoped
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ServiceStatus `json:"status"`
}
