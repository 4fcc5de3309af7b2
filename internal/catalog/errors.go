package catalog

import "errors"

// Service errors.
var (
	ErrServiceNotFound = errors.New("service not found")
	ErrInvalidStatus   = errors.New("invalid service status")
	ErrNameRequired    = errors.New("name must contain text")
	// ErrStatusChanged means the stored status no longer matched the expected one
	// when a compare-and-swap status update ran.
	ErrStatusChanged = errors.New("service status changed concurrently")
)
