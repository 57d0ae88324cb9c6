package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
)

// Command structs
type CreateBillCommand struct {
	BillID    string `json:"bill_id"`
	PatientID string `json:"patient_id" validate:"required"`
	Currency  string `json:"currency"`
}

type AddBillItemCommand struct {
	BillID      string  `json:"bill_id" validate:"required"`
	ItemID      string  `json:"item_id"`
	Description string  `json:"description" validate:"required"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type PayBillCommand struct {
	BillID        string  `json:"bill_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	PaidAt        string  `json:"paid_at"`
	Reference     string  `json:"reference"`
}

type CancelBillCommand struct {
	BillID      string `json:"bill_id" validate:"required"`
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason"`
}

// BillingHandler handles all billing commands
type BillingHandler struct {
	store      eventstore.EventStore
	maxRetries int
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(store eventstore.EventStore, maxRetries int) *BillingHandler {
	return &BillingHandler{store: store, maxRetries: maxRetries}
}

// Register binds the billing command types on the dispatcher
func (h *BillingHandler) Register(d *Dispatcher) error {
	bindings := map[domain.CommandType]HandlerFunc{
		domain.CmdBillCreate:  h.HandleCreateBill,
		domain.CmdBillItemAdd: h.HandleAddBillItem,
		domain.CmdBillPay:     h.HandlePayBill,
		domain.CmdBillCancel:  h.HandleCancelBill,
	}
	for cmdType, handler := range bindings {
		if err := d.Register(cmdType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleCreateBill opens a new bill for a patient
func (h *BillingHandler) HandleCreateBill(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload CreateBillCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	if payload.BillID == "" {
		payload.BillID = uuid.New().String()
	} else {
		version, err := h.store.CurrentVersion(ctx, payload.BillID)
		if err != nil {
			return domain.CommandResult{}, fmt.Errorf("failed to check if bill exists: %w", err)
		}
		if version > 0 {
			return domain.CommandResult{}, domain.NewValidationError("bill_id", fmt.Sprintf("bill already exists with ID %s", payload.BillID))
		}
	}
	if payload.Currency == "" {
		payload.Currency = "USD"
	}

	log.Info().Str("aggregateID", payload.BillID).Msg("Handling CreateBill command")

	event := domain.BillCreatedEvent{
		BillID:    payload.BillID,
		PatientID: payload.PatientID,
		Currency:  payload.Currency,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.BillCreated, domain.AggregateBill, payload.BillID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleAddBillItem adds a line item to an open bill
func (h *BillingHandler) HandleAddBillItem(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload AddBillItemCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	if payload.ItemID == "" {
		payload.ItemID = uuid.New().String()
	}

	log.Info().Str("aggregateID", payload.BillID).Msg("Handling AddBillItem command")

	if err := h.requireOpenBill(ctx, payload.BillID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.BillItemAddedEvent{
		BillID:      payload.BillID,
		ItemID:      payload.ItemID,
		Description: payload.Description,
		Quantity:    payload.Quantity,
		UnitPrice:   payload.UnitPrice,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.BillItemAdded, domain.AggregateBill, payload.BillID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandlePayBill records a payment and closes the bill
func (h *BillingHandler) HandlePayBill(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload PayBillCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	log.Info().Str("aggregateID", payload.BillID).Msg("Handling PayBill command")

	if err := h.requireOpenBill(ctx, payload.BillID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.BillPaidEvent{
		BillID:        payload.BillID,
		Amount:        payload.Amount,
		PaymentMethod: payload.PaymentMethod,
		PaidAt:        payload.PaidAt,
		Reference:     payload.Reference,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.BillPaid, domain.AggregateBill, payload.BillID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleCancelBill voids a bill
func (h *BillingHandler) HandleCancelBill(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload CancelBillCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	log.Info().Str("aggregateID", payload.BillID).Msg("Handling CancelBill command")

	if err := h.requireOpenBill(ctx, payload.BillID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.BillCancelledEvent{
		BillID:      payload.BillID,
		CancelledBy: payload.CancelledBy,
		Reason:      payload.Reason,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.BillCancelled, domain.AggregateBill, payload.BillID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// requireOpenBill verifies the bill exists and its last event has not
// closed it. The event log is the source of truth here, not the read
// model, so a projection lag cannot let a payment slip through.
func (h *BillingHandler) requireOpenBill(ctx context.Context, billID string) error {
	events, err := h.store.GetEvents(ctx, billID)
	if err != nil {
		return fmt.Errorf("failed to load bill events: %w", err)
	}
	if len(events) == 0 {
		return domain.NewValidationError("bill_id", fmt.Sprintf("no bill with ID %s", billID))
	}

	last := events[len(events)-1]
	switch last.Type {
	case domain.BillPaid:
		return domain.NewValidationError("bill_id", fmt.Sprintf("bill %s is already paid", billID))
	case domain.BillCancelled:
		return domain.NewValidationError("bill_id", fmt.Sprintf("bill %s is cancelled", billID))
	}
	return nil
}
