package eventstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
)

func newTestEvent(t *testing.T, aggregateID string, version int) domain.Event {
	t.Helper()
	event, err := domain.NewEvent(domain.PatientRegistered, domain.AggregatePatient, aggregateID, version, domain.PatientRegisteredEvent{
		PatientID: aggregateID,
		FirstName: "John",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	return event
}

func TestAppendAssignsGaplessVersions(t *testing.T) {
	store := NewMemoryEventStore(nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		stored, err := store.Append(ctx, newTestEvent(t, "patient-1", i), i-1)
		require.NoError(t, err)
		require.Equal(t, i, stored.Version)
	}

	version, err := store.CurrentVersion(ctx, "patient-1")
	require.NoError(t, err)
	require.Equal(t, 5, version)

	events, err := store.GetEvents(ctx, "patient-1")
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, event := range events {
		require.Equal(t, i+1, event.Version)
	}
}

func TestAppendStaleVersionConflicts(t *testing.T) {
	store := NewMemoryEventStore(nil)
	ctx := context.Background()

	_, err := store.Append(ctx, newTestEvent(t, "patient-1", 1), 0)
	require.NoError(t, err)

	// A writer that still believes the aggregate is at version 0 loses
	_, err = store.Append(ctx, newTestEvent(t, "patient-1", 1), 0)
	require.Error(t, err)
	require.True(t, IsConcurrencyError(err))

	version, err := store.CurrentVersion(ctx, "patient-1")
	require.NoError(t, err)
	require.Equal(t, 1, version)
}

func TestConcurrentAppendsStayGapless(t *testing.T) {
	store := NewMemoryEventStore(nil)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Store-computed version, as a retrying handler would converge to
			_, err := store.Append(ctx, newTestEvent(t, "patient-1", 0), -1)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	events, err := store.GetEvents(ctx, "patient-1")
	require.NoError(t, err)
	require.Len(t, events, writers)
	for i, event := range events {
		require.Equal(t, i+1, event.Version)
	}
}

func TestGetEventsByTypesAfter(t *testing.T) {
	store := NewMemoryEventStore(nil)
	ctx := context.Background()

	// Identical timestamps on purpose: paging is by sequence, not time
	base := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

	firstEvent := newTestEvent(t, "patient-1", 1)
	firstEvent.Timestamp = base
	first, err := store.Append(ctx, firstEvent, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Sequence)

	secondEvent := newTestEvent(t, "patient-2", 1)
	secondEvent.Timestamp = base
	second, err := store.Append(ctx, secondEvent, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), second.Sequence)

	all, err := store.GetEventsByTypesAfter(ctx, []string{domain.PatientRegistered}, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 2)

	after, err := store.GetEventsByTypesAfter(ctx, []string{domain.PatientRegistered}, first.Sequence, 100)
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.Equal(t, "patient-2", after[0].AggregateID)

	limited, err := store.GetEventsByTypesAfter(ctx, []string{domain.PatientRegistered}, 0, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "patient-1", limited[0].AggregateID)

	none, err := store.GetEventsByTypesAfter(ctx, []string{domain.BillCreated}, 0, 100)
	require.NoError(t, err)
	require.Empty(t, none)
}
