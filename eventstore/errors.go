package eventstore

import (
	"errors"
	"fmt"
)

// ErrEventNotFound is returned by GetEventByID for an unknown event ID.
var ErrEventNotFound = errors.New("event not found")

// ConcurrencyError reports a version conflict on append: another writer
// committed the same version first. Handlers retry with a fresh version
// read rather than surfacing this as a generic failure.
type ConcurrencyError struct {
	AggregateID string
	Version     int
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("version conflict on aggregate %s at version %d", e.AggregateID, e.Version)
}

// IsConcurrencyError reports whether err is a ConcurrencyError.
func IsConcurrencyError(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}
