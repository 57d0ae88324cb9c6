package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
)

func TestHandleRegisterPatient(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewPatientHandler(store, 3)

	cmd, err := domain.NewCommand(domain.CmdPatientRegister, RegisterPatientCommand{
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: "1985-03-14",
		Email:       "john.doe@example.com",
	})
	require.NoError(t, err)

	result, err := handler.HandleRegisterPatient(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	event := result.Events[0]
	require.Equal(t, domain.PatientRegistered, event.Type)
	require.Equal(t, 1, event.Version)
	require.NotEmpty(t, event.AggregateID, "generates an ID when none is supplied")

	version, err := store.CurrentVersion(context.Background(), event.AggregateID)
	require.NoError(t, err)
	require.Equal(t, 1, version)
}

func TestHandleRegisterPatientRejectsExisting(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewPatientHandler(store, 3)

	payload := RegisterPatientCommand{
		PatientID:   "patient-1",
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: "1985-03-14",
	}

	cmd, err := domain.NewCommand(domain.CmdPatientRegister, payload)
	require.NoError(t, err)
	_, err = handler.HandleRegisterPatient(context.Background(), cmd)
	require.NoError(t, err)

	cmd, err = domain.NewCommand(domain.CmdPatientRegister, payload)
	require.NoError(t, err)
	_, err = handler.HandleRegisterPatient(context.Background(), cmd)
	require.True(t, domain.IsValidationError(err))
}

func TestHandleRegisterPatientValidation(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewPatientHandler(store, 3)

	// Missing last_name and date_of_birth
	cmd, err := domain.NewCommand(domain.CmdPatientRegister, map[string]string{
		"first_name": "John",
	})
	require.NoError(t, err)

	_, err = handler.HandleRegisterPatient(context.Background(), cmd)
	require.True(t, domain.IsValidationError(err))

	events, err := store.GetEventsByType(context.Background(), domain.PatientRegistered)
	require.NoError(t, err)
	require.Empty(t, events, "rejected commands must not write")
}

func TestHandleAdmitPatient(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewPatientHandler(store, 3)

	registerCmd, err := domain.NewCommand(domain.CmdPatientRegister, RegisterPatientCommand{
		PatientID:   "patient-1",
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: "1985-03-14",
	})
	require.NoError(t, err)
	_, err = handler.HandleRegisterPatient(context.Background(), registerCmd)
	require.NoError(t, err)

	admitCmd, err := domain.NewCommand(domain.CmdPatientAdmit, AdmitPatientCommand{
		PatientID:     "patient-1",
		AdmissionDate: "2024-01-20",
		Department:    "cardiology",
	})
	require.NoError(t, err)

	result, err := handler.HandleAdmitPatient(context.Background(), admitCmd)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	require.Equal(t, domain.PatientAdmitted, result.Events[0].Type)
	require.Equal(t, 2, result.Events[0].Version)
}

func TestHandleAdmitUnknownPatient(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewPatientHandler(store, 3)

	cmd, err := domain.NewCommand(domain.CmdPatientAdmit, AdmitPatientCommand{
		PatientID:     "nobody",
		AdmissionDate: "2024-01-20",
		Department:    "cardiology",
	})
	require.NoError(t, err)

	_, err = handler.HandleAdmitPatient(context.Background(), cmd)
	require.True(t, domain.IsValidationError(err))
}

func TestHandleUpdatePatientRejectsEmptyUpdate(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewPatientHandler(store, 3)

	cmd, err := domain.NewCommand(domain.CmdPatientUpdate, UpdatePatientCommand{
		PatientID: "patient-1",
	})
	require.NoError(t, err)

	_, err = handler.HandleUpdatePatient(context.Background(), cmd)
	require.True(t, domain.IsValidationError(err))
}
