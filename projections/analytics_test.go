package projections

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/repository"
)

func analyticsEvent(t *testing.T, eventType, aggregateID string, version int, payload interface{}) domain.Event {
	t.Helper()
	event, err := domain.NewEvent(eventType, domain.AggregatePatient, aggregateID, version, payload)
	require.NoError(t, err)
	event.Timestamp = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	return event
}

func TestAnalyticsCountsPerScope(t *testing.T) {
	repo := repository.NewMemoryAnalyticsRepository()
	projector := NewAnalyticsProjector(repo)
	ctx := context.Background()

	registered := analyticsEvent(t, domain.PatientRegistered, "patient-1", 1, domain.PatientRegisteredEvent{
		PatientID: "patient-1",
	})
	admitted := analyticsEvent(t, domain.PatientAdmitted, "patient-1", 2, domain.PatientAdmittedEvent{
		PatientID:  "patient-1",
		Department: "cardiology",
	})

	require.NoError(t, projector.Fold(ctx, registered))
	require.NoError(t, projector.Fold(ctx, admitted))

	global, err := repo.GetByScope(ctx, GlobalScope)
	require.NoError(t, err)
	require.Equal(t, int64(1), global.PatientsRegistered)
	require.Equal(t, int64(1), global.PatientsAdmitted)

	cardiology, err := repo.GetByScope(ctx, "department:cardiology")
	require.NoError(t, err)
	require.Equal(t, int64(1), cardiology.PatientsAdmitted)
	require.Zero(t, cardiology.PatientsRegistered, "registration carries no department")
}

func TestAnalyticsIgnoresRedeliveredEvent(t *testing.T) {
	repo := repository.NewMemoryAnalyticsRepository()
	projector := NewAnalyticsProjector(repo)
	ctx := context.Background()

	admitted := analyticsEvent(t, domain.PatientAdmitted, "patient-1", 2, domain.PatientAdmittedEvent{
		PatientID:  "patient-1",
		Department: "cardiology",
	})

	require.NoError(t, projector.Fold(ctx, admitted))
	require.NoError(t, projector.Fold(ctx, admitted))

	global, err := repo.GetByScope(ctx, GlobalScope)
	require.NoError(t, err)
	require.Equal(t, int64(1), global.PatientsAdmitted, "the same event must not count twice")
}

func TestAnalyticsRevenue(t *testing.T) {
	repo := repository.NewMemoryAnalyticsRepository()
	projector := NewAnalyticsProjector(repo)
	ctx := context.Background()

	paid := analyticsEvent(t, domain.BillPaid, "bill-1", 2, domain.BillPaidEvent{
		BillID: "bill-1",
		Amount: 271.00,
	})
	require.NoError(t, projector.Fold(ctx, paid))

	secondPaid := analyticsEvent(t, domain.BillPaid, "bill-2", 2, domain.BillPaidEvent{
		BillID: "bill-2",
		Amount: 29.00,
	})
	require.NoError(t, projector.Fold(ctx, secondPaid))

	global, err := repo.GetByScope(ctx, GlobalScope)
	require.NoError(t, err)
	require.InDelta(t, 300.00, global.RevenueCollected, 0.001)
}
