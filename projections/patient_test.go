package projections

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/repository"
)

func patientEvent(t *testing.T, eventType string, version int, payload interface{}) domain.Event {
	t.Helper()
	event, err := domain.NewEvent(eventType, domain.AggregatePatient, "patient-1", version, payload)
	require.NoError(t, err)
	event.Timestamp = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC).Add(time.Duration(version) * time.Second)
	return event
}

func TestFoldPatientLifecycle(t *testing.T) {
	registered := patientEvent(t, domain.PatientRegistered, 1, domain.PatientRegisteredEvent{
		PatientID:   "patient-1",
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: "1985-03-14",
	})

	row, err := FoldPatientEvent(nil, registered)
	require.NoError(t, err)
	require.Equal(t, models.PatientStatusRegistered, row.Status)
	require.Equal(t, 1, row.LastEventVersion)
	require.Equal(t, registered.Timestamp, row.CreatedAt)

	admitted := patientEvent(t, domain.PatientAdmitted, 2, domain.PatientAdmittedEvent{
		PatientID:     "patient-1",
		AdmissionDate: "2024-01-20",
		Department:    "cardiology",
		WardNumber:    "W3",
	})
	row, err = FoldPatientEvent(row, admitted)
	require.NoError(t, err)
	require.Equal(t, models.PatientStatusAdmitted, row.Status)
	require.Equal(t, "cardiology", row.Department)
	require.Equal(t, 1, row.AdmissionCount)

	discharged := patientEvent(t, domain.PatientDischarged, 3, domain.PatientDischargedEvent{
		PatientID:     "patient-1",
		DischargeDate: "2024-01-25",
	})
	row, err = FoldPatientEvent(row, discharged)
	require.NoError(t, err)
	require.Equal(t, models.PatientStatusDischarged, row.Status)
	require.Empty(t, row.WardNumber, "discharge frees the ward")
	require.Equal(t, 3, row.LastEventVersion)
}

func TestFoldPatientIsPure(t *testing.T) {
	registered := patientEvent(t, domain.PatientRegistered, 1, domain.PatientRegisteredEvent{
		PatientID: "patient-1",
		FirstName: "John",
		LastName:  "Doe",
	})

	first, err := FoldPatientEvent(nil, registered)
	require.NoError(t, err)
	second, err := FoldPatientEvent(nil, registered)
	require.NoError(t, err)
	require.Equal(t, first, second, "same input must give the same row")
}

func TestFoldPatientAdmitWithoutRegister(t *testing.T) {
	admitted := patientEvent(t, domain.PatientAdmitted, 1, domain.PatientAdmittedEvent{
		PatientID:  "patient-1",
		Department: "cardiology",
	})
	_, err := FoldPatientEvent(nil, admitted)
	require.Error(t, err)
}

func TestPatientProjectorSkipsReplayedEvents(t *testing.T) {
	repo := repository.NewMemoryPatientRepository()
	projector := NewPatientProjector(repo, nil)
	ctx := context.Background()

	registered := patientEvent(t, domain.PatientRegistered, 1, domain.PatientRegisteredEvent{
		PatientID: "patient-1",
		FirstName: "John",
		LastName:  "Doe",
	})
	admitted := patientEvent(t, domain.PatientAdmitted, 2, domain.PatientAdmittedEvent{
		PatientID:  "patient-1",
		Department: "cardiology",
	})

	require.NoError(t, projector.Fold(ctx, registered))
	require.NoError(t, projector.Fold(ctx, admitted))

	// Redelivery of both events must not change the row
	require.NoError(t, projector.Fold(ctx, registered))
	require.NoError(t, projector.Fold(ctx, admitted))

	row, err := repo.GetByID(ctx, "patient-1")
	require.NoError(t, err)
	require.Equal(t, 1, row.AdmissionCount, "replay must not double-count admissions")
	require.Equal(t, 2, row.LastEventVersion)
	require.Equal(t, models.PatientStatusAdmitted, row.Status)
}
