package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNoHandler       = errors.New("no handler registered for command type")
	ErrNoQueryHandler  = errors.New("no handler registered for query type")
	ErrMissingParam    = errors.New("missing required query parameter")
	ErrQueueFull       = errors.New("command queue is full")
	ErrDispatcherClose = errors.New("dispatcher is shut down")
)

// ValidationError reports a malformed or incomplete command. It is surfaced
// synchronously and never causes a partial write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
