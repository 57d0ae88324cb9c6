package queries

import (
	"context"
	"errors"
	"fmt"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/repository"
)

// AppointmentQueryHandler serves appointment queries from the read model
type AppointmentQueryHandler struct {
	repo repository.AppointmentRepository
}

// NewAppointmentQueryHandler creates an appointment query handler
func NewAppointmentQueryHandler(repo repository.AppointmentRepository) *AppointmentQueryHandler {
	return &AppointmentQueryHandler{repo: repo}
}

// Register binds the appointment query types on the dispatcher
func (h *AppointmentQueryHandler) Register(d *Dispatcher) error {
	bindings := map[domain.QueryType]HandlerFunc{
		domain.QueryGetAppointment:   h.HandleGetAppointment,
		domain.QueryListAppointments: h.HandleListAppointments,
	}
	for queryType, handler := range bindings {
		if err := d.Register(queryType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleGetAppointment returns one appointment by ID, nil when unknown
func (h *AppointmentQueryHandler) HandleGetAppointment(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	appointmentID, err := requireParam(q, "appointment_id")
	if err != nil {
		return domain.QueryResult{}, err
	}

	row, err := h.repo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.QueryResult{Data: nil}, nil
		}
		return domain.QueryResult{}, fmt.Errorf("failed to load appointment: %w", err)
	}
	return domain.QueryResult{Data: row, TotalCount: 1}, nil
}

// HandleListAppointments returns a filtered, paginated appointment list
func (h *AppointmentQueryHandler) HandleListAppointments(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	page, pageSize := pagination(q)
	filter := repository.AppointmentFilter{
		PatientID: q.Param("patient_id"),
		DoctorID:  q.Param("doctor_id"),
		Status:    q.Param("status"),
	}

	rows, total, err := h.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("failed to list appointments: %w", err)
	}
	return domain.QueryResult{
		Data:       rows,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
