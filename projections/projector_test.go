package projections

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/repository"
)

// flakyProjector fails the first failuresLeft folds, then succeeds.
type flakyProjector struct {
	failuresLeft int
	folded       []string
}

func (f *flakyProjector) ID() string           { return "flaky" }
func (f *flakyProjector) Type() string         { return "FLAKY" }
func (f *flakyProjector) Name() string         { return "Flaky test projection" }
func (f *flakyProjector) EventTypes() []string { return []string{domain.PatientRegistered} }

func (f *flakyProjector) Fold(_ context.Context, event domain.Event) error {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return errors.New("transient fold failure")
	}
	f.folded = append(f.folded, event.ID)
	return nil
}

func (f *flakyProjector) Truncate(context.Context) error {
	f.folded = nil
	return nil
}

func appendPatientEvents(t *testing.T, store eventstore.EventStore, n int) []domain.Event {
	t.Helper()
	base := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

	events := make([]domain.Event, 0, n)
	for i := 0; i < n; i++ {
		aggregateID := fmt.Sprintf("patient-%d", i)
		event, err := domain.NewEvent(domain.PatientRegistered, domain.AggregatePatient, aggregateID, 1, domain.PatientRegisteredEvent{
			PatientID: aggregateID,
			FirstName: "Patient",
			LastName:  fmt.Sprintf("Number%d", i),
		})
		require.NoError(t, err)
		event.Timestamp = base.Add(time.Duration(i) * time.Second)

		stored, err := store.Append(context.Background(), event, 0)
		require.NoError(t, err)
		events = append(events, stored)
	}
	return events
}

func TestRebuildMatchesIncremental(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	patientRepo := repository.NewMemoryPatientRepository()
	projectionRepo := repository.NewMemoryProjectionRepository()

	projector := NewProjector(store, projectionRepo, nil, 2, 3, 5)
	require.NoError(t, projector.Register(NewPatientProjector(patientRepo, nil)))
	require.NoError(t, projector.InitProjections(context.Background()))

	events := appendPatientEvents(t, store, 5)
	for _, event := range events {
		require.NoError(t, projector.ProcessEvent(context.Background(), event))
	}

	incremental, _, err := patientRepo.List(context.Background(), repository.PatientFilter{}, 1, 100)
	require.NoError(t, err)
	require.Len(t, incremental, 5)

	require.NoError(t, projector.RebuildProjection(context.Background(), PatientProjectionID))

	rebuilt, _, err := patientRepo.List(context.Background(), repository.PatientFilter{}, 1, 100)
	require.NoError(t, err)
	require.Equal(t, incremental, rebuilt, "replaying the log must reproduce incremental state")

	row, err := projectionRepo.Get(context.Background(), PatientProjectionID)
	require.NoError(t, err)
	require.Equal(t, models.ProjectionRunning, row.State)
	require.Equal(t, 2, row.Version, "rebuild bumps the projection version")
}

func TestCatchUpFoldsMissedEvents(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	patientRepo := repository.NewMemoryPatientRepository()
	projectionRepo := repository.NewMemoryProjectionRepository()

	projector := NewProjector(store, projectionRepo, nil, 2, 3, 5)
	require.NoError(t, projector.Register(NewPatientProjector(patientRepo, nil)))
	require.NoError(t, projector.InitProjections(context.Background()))

	events := appendPatientEvents(t, store, 3)

	// Only the first event arrives via pub/sub; the rest are picked up by
	// the poll loop.
	require.NoError(t, projector.ProcessEvent(context.Background(), events[0]))

	total := 0
	for {
		n, err := projector.CatchUp(context.Background(), PatientProjectionID)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		total += n
	}
	require.Equal(t, 2, total)

	rows, _, err := patientRepo.List(context.Background(), repository.PatientFilter{}, 1, 100)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestCatchUpSurvivesTiedTimestampsAtBatchBoundary(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	patientRepo := repository.NewMemoryPatientRepository()
	projectionRepo := repository.NewMemoryProjectionRepository()

	// batchSize 1 forces a batch boundary between the two events
	projector := NewProjector(store, projectionRepo, nil, 1, 3, 5)
	require.NoError(t, projector.Register(NewPatientProjector(patientRepo, nil)))
	require.NoError(t, projector.InitProjections(context.Background()))

	shared := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	for _, aggregateID := range []string{"patient-a", "patient-b"} {
		event, err := domain.NewEvent(domain.PatientRegistered, domain.AggregatePatient, aggregateID, 1, domain.PatientRegisteredEvent{
			PatientID: aggregateID,
			FirstName: "Test",
			LastName:  "Patient",
		})
		require.NoError(t, err)
		event.Timestamp = shared

		_, err = store.Append(context.Background(), event, 0)
		require.NoError(t, err)
	}

	for i := 0; i < 10; i++ {
		n, err := projector.CatchUp(context.Background(), PatientProjectionID)
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}

	rows, _, err := patientRepo.List(context.Background(), repository.PatientFilter{}, 1, 100)
	require.NoError(t, err)
	require.Len(t, rows, 2, "an event sharing the watermark timestamp must still be delivered")
}

func TestCircuitBreakerPausesProjection(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	projectionRepo := repository.NewMemoryProjectionRepository()

	flaky := &flakyProjector{failuresLeft: 100}
	projector := NewProjector(store, projectionRepo, nil, 10, 3, 3)
	require.NoError(t, projector.Register(flaky))
	require.NoError(t, projector.InitProjections(context.Background()))

	events := appendPatientEvents(t, store, 5)
	for _, event := range events {
		require.NoError(t, projector.ProcessEvent(context.Background(), event))
	}

	// Three consecutive failures trip the breaker; the last two events are
	// never offered to the fold.
	require.Equal(t, 97, flaky.failuresLeft)

	row, err := projectionRepo.Get(context.Background(), "flaky")
	require.NoError(t, err)
	require.Equal(t, models.ProjectionError, row.State)

	deadLetters, err := projectionRepo.UnresolvedErrors(context.Background(), 3, 100)
	require.NoError(t, err)
	require.Len(t, deadLetters, 3)
}

func TestStartProjectionResetsBreaker(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	projectionRepo := repository.NewMemoryProjectionRepository()

	flaky := &flakyProjector{failuresLeft: 3}
	projector := NewProjector(store, projectionRepo, nil, 10, 3, 3)
	require.NoError(t, projector.Register(flaky))
	require.NoError(t, projector.InitProjections(context.Background()))

	events := appendPatientEvents(t, store, 3)
	for _, event := range events {
		require.NoError(t, projector.ProcessEvent(context.Background(), event))
	}

	row, err := projectionRepo.Get(context.Background(), "flaky")
	require.NoError(t, err)
	require.Equal(t, models.ProjectionError, row.State)

	// The flaky projector has recovered; resuming replays from the
	// watermark and folds everything that was skipped.
	require.NoError(t, projector.StartProjection(context.Background(), "flaky"))

	require.Len(t, flaky.folded, 3)
	row, err = projectionRepo.Get(context.Background(), "flaky")
	require.NoError(t, err)
	require.Equal(t, models.ProjectionRunning, row.State)
}

func TestRetryFailedEventsResolvesDeadLetters(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	projectionRepo := repository.NewMemoryProjectionRepository()

	flaky := &flakyProjector{failuresLeft: 1}
	projector := NewProjector(store, projectionRepo, nil, 10, 3, 5)
	require.NoError(t, projector.Register(flaky))
	require.NoError(t, projector.InitProjections(context.Background()))

	events := appendPatientEvents(t, store, 1)
	require.NoError(t, projector.ProcessEvent(context.Background(), events[0]))

	deadLetters, err := projectionRepo.UnresolvedErrors(context.Background(), 3, 100)
	require.NoError(t, err)
	require.Len(t, deadLetters, 1)

	require.NoError(t, projector.RetryFailedEvents(context.Background(), 100))

	deadLetters, err = projectionRepo.UnresolvedErrors(context.Background(), 3, 100)
	require.NoError(t, err)
	require.Empty(t, deadLetters, "recovered dead-letters are marked resolved")
	require.Len(t, flaky.folded, 1)
}
