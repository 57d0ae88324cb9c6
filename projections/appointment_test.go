package projections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
)

func appointmentEvent(t *testing.T, eventType string, version int, payload interface{}) domain.Event {
	t.Helper()
	event, err := domain.NewEvent(eventType, domain.AggregateAppointment, "appt-1", version, payload)
	require.NoError(t, err)
	event.Timestamp = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC).Add(time.Duration(version) * time.Second)
	return event
}

func TestFoldAppointmentReschedule(t *testing.T) {
	row, err := FoldAppointmentEvent(nil, appointmentEvent(t, domain.AppointmentCreated, 1, domain.AppointmentCreatedEvent{
		AppointmentID: "appt-1",
		PatientID:     "patient-1",
		Department:    "cardiology",
		ScheduledAt:   "2024-02-01T09:00:00Z",
	}))
	require.NoError(t, err)
	require.Equal(t, models.AppointmentStatusScheduled, row.Status)

	row, err = FoldAppointmentEvent(row, appointmentEvent(t, domain.AppointmentRescheduled, 2, domain.AppointmentRescheduledEvent{
		AppointmentID: "appt-1",
		ScheduledAt:   "2024-02-03T11:00:00Z",
	}))
	require.NoError(t, err)
	require.Equal(t, "2024-02-03T11:00:00Z", row.ScheduledAt)
	require.Equal(t, 1, row.RescheduleCount)
	require.Equal(t, models.AppointmentStatusScheduled, row.Status)

	row, err = FoldAppointmentEvent(row, appointmentEvent(t, domain.AppointmentCompleted, 3, domain.AppointmentCompletedEvent{
		AppointmentID: "appt-1",
		Notes:         "follow-up in six months",
	}))
	require.NoError(t, err)
	require.Equal(t, models.AppointmentStatusCompleted, row.Status)
	require.Equal(t, "follow-up in six months", row.Notes)
}

func TestFoldAppointmentCancelWithoutCreate(t *testing.T) {
	_, err := FoldAppointmentEvent(nil, appointmentEvent(t, domain.AppointmentCancelled, 1, domain.AppointmentCancelledEvent{
		AppointmentID: "appt-1",
	}))
	require.Error(t, err)
}
