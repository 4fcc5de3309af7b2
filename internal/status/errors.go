package status

import (
	"errors"
	"fmt"

	"github.com/bissquit/statusboard/internal/catalog"
)

// Status transition errors.
var (
	ErrServiceNotFound        = catalog.ErrServiceNotFound
	ErrInvalidStatus          = errors.New("invalid status")
	ErrNoChange               = errors.New("service already has this status")
	ErrReasonRequired         = errors.New("reason is required when a service becomes degraded")
	ErrConcurrentModification = errors.New("service was modified concurrently, retry the request")
)

// PersistenceError wraps a storage failure that aborted a transition.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
