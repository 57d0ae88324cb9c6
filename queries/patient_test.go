package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/commands"
	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/projections"
	"example.com/hospital/services/emr/repository"
)

func TestGetPatientMissingParam(t *testing.T) {
	handler := NewPatientQueryHandler(repository.NewMemoryPatientRepository(), nil)

	_, err := handler.HandleGetPatient(context.Background(), domain.NewQuery(domain.QueryGetPatient, nil))
	require.ErrorIs(t, err, domain.ErrMissingParam)
}

func TestGetUnknownPatientIsNilNotError(t *testing.T) {
	handler := NewPatientQueryHandler(repository.NewMemoryPatientRepository(), nil)

	result, err := handler.HandleGetPatient(context.Background(), domain.NewQuery(domain.QueryGetPatient, map[string]string{
		"patient_id": "nobody",
	}))
	require.NoError(t, err)
	require.Nil(t, result.Data)
}

func TestListPatientsFiltersByStatus(t *testing.T) {
	repo := repository.NewMemoryPatientRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.PatientReadModel{
		PatientID: "patient-1", LastName: "Doe", Status: models.PatientStatusAdmitted, Department: "cardiology",
	}))
	require.NoError(t, repo.Upsert(ctx, &models.PatientReadModel{
		PatientID: "patient-2", LastName: "Smith", Status: models.PatientStatusRegistered,
	}))

	handler := NewPatientQueryHandler(repo, nil)

	result, err := handler.HandleListPatients(ctx, domain.NewQuery(domain.QueryListPatients, map[string]string{
		"status": models.PatientStatusAdmitted,
	}))
	require.NoError(t, err)
	require.Equal(t, int64(1), result.TotalCount)

	rows := result.Data.([]models.PatientReadModel)
	require.Len(t, rows, 1)
	require.Equal(t, "patient-1", rows[0].PatientID)
}

// Full write-to-read path: commands append events, the projector folds
// them, the query side serves the folded row.
func TestCommandToQueryFlow(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryEventStore(nil)
	patientRepo := repository.NewMemoryPatientRepository()
	projectionRepo := repository.NewMemoryProjectionRepository()

	projector := projections.NewProjector(store, projectionRepo, nil, 100, 3, 5)
	require.NoError(t, projector.Register(projections.NewPatientProjector(patientRepo, nil)))
	require.NoError(t, projector.InitProjections(ctx))

	patientHandler := commands.NewPatientHandler(store, 3)

	registerCmd, err := domain.NewCommand(domain.CmdPatientRegister, commands.RegisterPatientCommand{
		PatientID:   "patient-1",
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: "1985-03-14",
	})
	require.NoError(t, err)
	registerResult, err := patientHandler.HandleRegisterPatient(ctx, registerCmd)
	require.NoError(t, err)

	admitCmd, err := domain.NewCommand(domain.CmdPatientAdmit, commands.AdmitPatientCommand{
		PatientID:     "patient-1",
		AdmissionDate: "2024-01-20",
		Department:    "cardiology",
	})
	require.NoError(t, err)
	admitResult, err := patientHandler.HandleAdmitPatient(ctx, admitCmd)
	require.NoError(t, err)

	for _, event := range append(registerResult.Events, admitResult.Events...) {
		require.NoError(t, projector.ProcessEvent(ctx, event))
	}

	queryHandler := NewPatientQueryHandler(patientRepo, nil)
	result, err := queryHandler.HandleGetPatient(ctx, domain.NewQuery(domain.QueryGetPatient, map[string]string{
		"patient_id": "patient-1",
	}))
	require.NoError(t, err)

	row := result.Data.(*models.PatientReadModel)
	require.Equal(t, "John", row.FirstName)
	require.Equal(t, models.PatientStatusAdmitted, row.Status)
	require.Equal(t, "cardiology", row.Department)
	require.Equal(t, "2024-01-20", row.AdmissionDate)
	require.Equal(t, 2, row.LastEventVersion)
}
