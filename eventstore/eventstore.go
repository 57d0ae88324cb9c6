package eventstore

import (
	"context"
	"time"

	"example.com/hospital/services/emr/domain"
)

// EventStore is the append-only, versioned-per-aggregate event log. The
// durable store is authoritative; the optional Notifier is a best-effort
// low-latency signal and its loss never loses data.
type EventStore interface {
	// Append writes a single event. expectedVersion is the version the
	// caller last observed for the aggregate (0 for a new aggregate); the
	// event is written at expectedVersion+1. A concurrent writer at the
	// same version yields a ConcurrencyError; callers retry with a fresh
	// CurrentVersion read. Pass expectedVersion < 0 to let the store
	// compute the next version itself.
	Append(ctx context.Context, event domain.Event, expectedVersion int) (domain.Event, error)

	// GetEvents returns all events of an aggregate in version order.
	GetEvents(ctx context.Context, aggregateID string) ([]domain.Event, error)

	// GetEventByID returns a single event by its unique ID.
	GetEventByID(ctx context.Context, eventID string) (domain.Event, error)

	// GetEventsByType returns all events of one type in timestamp order.
	GetEventsByType(ctx context.Context, eventType string) ([]domain.Event, error)

	// GetEventsByTimeRange returns events in [start, end) in timestamp order.
	GetEventsByTimeRange(ctx context.Context, start, end time.Time) ([]domain.Event, error)

	// GetEventsByTypesAfter returns up to limit events of the given types
	// with a sequence strictly greater than afterSequence, in sequence
	// order. Sequence paging has no ties, so a batch boundary can never
	// skip an event the way a timestamp watermark can. Used by projection
	// catch-up and rebuild.
	GetEventsByTypesAfter(ctx context.Context, types []string, afterSequence int64, limit int) ([]domain.Event, error)

	// CurrentVersion returns the highest committed version for an
	// aggregate, 0 if it has no events.
	CurrentVersion(ctx context.Context, aggregateID string) (int, error)
}

// Notifier publishes newly committed events to a real-time channel. The
// signal is best-effort; subscribers must also poll the durable store.
type Notifier interface {
	Publish(ctx context.Context, event domain.Event) error
}
