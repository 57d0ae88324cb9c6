package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/hospital/services/emr/domain"
)

// MemoryEventStore is an in-memory EventStore for development and tests.
// It enforces the same (aggregate_id, version) uniqueness the durable
// store gets from its index.
type MemoryEventStore struct {
	mu       sync.RWMutex
	byAgg    map[string][]domain.Event
	byID     map[string]domain.Event
	ordered  []domain.Event
	seq      int64
	notifier Notifier
}

// NewMemoryEventStore creates an empty in-memory event store. notifier may
// be nil.
func NewMemoryEventStore(notifier Notifier) *MemoryEventStore {
	return &MemoryEventStore{
		byAgg:    make(map[string][]domain.Event),
		byID:     make(map[string]domain.Event),
		notifier: notifier,
	}
}

// Append writes one event, enforcing strictly increasing gapless versions
// per aggregate.
func (s *MemoryEventStore) Append(ctx context.Context, event domain.Event, expectedVersion int) (domain.Event, error) {
	s.mu.Lock()
	current := len(s.byAgg[event.AggregateID])

	version := expectedVersion + 1
	if expectedVersion < 0 {
		version = current + 1
	}
	if version != current+1 {
		s.mu.Unlock()
		return domain.Event{}, &ConcurrencyError{AggregateID: event.AggregateID, Version: version}
	}

	event.Version = version
	s.seq++
	event.Sequence = s.seq
	s.byAgg[event.AggregateID] = append(s.byAgg[event.AggregateID], event)
	s.byID[event.ID] = event
	s.ordered = append(s.ordered, event)
	s.mu.Unlock()

	if s.notifier != nil {
		_ = s.notifier.Publish(ctx, event)
	}
	return event, nil
}

// GetEvents gets all events for an aggregate in version order
func (s *MemoryEventStore) GetEvents(_ context.Context, aggregateID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]domain.Event, len(s.byAgg[aggregateID]))
	copy(events, s.byAgg[aggregateID])
	return events, nil
}

// GetEventByID gets a single event by its unique ID
func (s *MemoryEventStore) GetEventByID(_ context.Context, eventID string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.byID[eventID]
	if !ok {
		return domain.Event{}, ErrEventNotFound
	}
	return event, nil
}

// GetEventsByType gets all events of one type in timestamp order
func (s *MemoryEventStore) GetEventsByType(_ context.Context, eventType string) ([]domain.Event, error) {
	return s.filter(func(e domain.Event) bool {
		return e.Type == eventType
	}), nil
}

// GetEventsByTimeRange gets events in [start, end) in timestamp order
func (s *MemoryEventStore) GetEventsByTimeRange(_ context.Context, start, end time.Time) ([]domain.Event, error) {
	return s.filter(func(e domain.Event) bool {
		return !e.Timestamp.Before(start) && e.Timestamp.Before(end)
	}), nil
}

// GetEventsByTypesAfter gets up to limit events of the given types with a
// sequence strictly greater than afterSequence, in sequence order
func (s *MemoryEventStore) GetEventsByTypesAfter(_ context.Context, types []string, afterSequence int64, limit int) ([]domain.Event, error) {
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []domain.Event
	for _, e := range s.ordered {
		if wanted[e.Type] && e.Sequence > afterSequence {
			events = append(events, e)
		}
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

// CurrentVersion returns the highest committed version for an aggregate
func (s *MemoryEventStore) CurrentVersion(_ context.Context, aggregateID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byAgg[aggregateID]), nil
}

func (s *MemoryEventStore) filter(keep func(domain.Event) bool) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []domain.Event
	for _, e := range s.ordered {
		if keep(e) {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
