package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Domain packages wrap these so callers can branch on the kind
// with errors.Is without knowing which domain produced the error.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrConflict               = errors.New("resource already exists")
	ErrForbidden              = errors.New("operation not permitted")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidState           = errors.New("operation not allowed in current state")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrExceedsBalance         = errors.New("amount exceeds remaining balance")
	ErrAlreadyClosed          = errors.New("already closed")
	ErrConfigurationMissing   = errors.New("configuration missing")
	ErrNoEligibleEmployees    = errors.New("no eligible employees")
	ErrNoConfiguration        = errors.New("no active configuration")
	ErrConcurrentModification = errors.New("resource was modified concurrently")
)

// InvalidStateError reports an operation attempted on an entity whose status
// does not allow it.
type InvalidStateError struct {
	Entity    string
	ID        string
	Status    string
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %q", e.Operation, e.Entity, e.ID, e.Status)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NewInvalidState builds an InvalidStateError.
func NewInvalidState(entity, id, status, operation string) error {
	return &InvalidStateError{Entity: entity, ID: id, Status: status, Operation: operation}
}
