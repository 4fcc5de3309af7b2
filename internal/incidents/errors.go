package incidents

import "errors"

// Incident log errors.
var (
	ErrLogNotFound = errors.New("incident log not found")
	// ErrOpenLogExists is returned when a second open log would be created for a service.
	ErrOpenLogExists = errors.New("service already has an open incident")
)
