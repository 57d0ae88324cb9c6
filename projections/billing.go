package projections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/repository"
)

// BillingProjectionID identifies the billing projection
const BillingProjectionID = "billing"

// billItem is the denormalized line-item shape stored on the bill row
type billItem struct {
	ItemID      string  `json:"item_id"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type billingFold func(existing *models.BillingReadModel, event domain.Event) (*models.BillingReadModel, error)

var billingFolds = map[string]billingFold{
	domain.BillCreated:   foldBillCreated,
	domain.BillItemAdded: foldBillItemAdded,
	domain.BillPaid:      foldBillPaid,
	domain.BillCancelled: foldBillCancelled,
}

// BillingProjector folds billing events into billing_read_model.
type BillingProjector struct {
	repo repository.BillingRepository
}

// NewBillingProjector creates a billing projector
func NewBillingProjector(repo repository.BillingRepository) *BillingProjector {
	return &BillingProjector{repo: repo}
}

// ID returns the projection ID
func (p *BillingProjector) ID() string { return BillingProjectionID }

// Type returns the projection type
func (p *BillingProjector) Type() string { return "BILLING" }

// Name returns a human-readable name
func (p *BillingProjector) Name() string { return "Billing read model" }

// EventTypes returns the event types this projection folds
func (p *BillingProjector) EventTypes() []string {
	types := make([]string, 0, len(billingFolds))
	for t := range billingFolds {
		types = append(types, t)
	}
	return types
}

// Fold applies one event to the billing read model
func (p *BillingProjector) Fold(ctx context.Context, event domain.Event) error {
	existing, err := p.repo.GetByID(ctx, event.AggregateID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to load bill row: %w", err)
	}
	if existing != nil && event.Version <= existing.LastEventVersion {
		return nil
	}

	next, err := FoldBillingEvent(existing, event)
	if err != nil {
		return err
	}
	if existing != nil {
		next.ID = existing.ID
	}
	if err := p.repo.Upsert(ctx, next); err != nil {
		return fmt.Errorf("failed to upsert bill row: %w", err)
	}
	return nil
}

// Truncate deletes the billing read model, for rebuild
func (p *BillingProjector) Truncate(ctx context.Context) error {
	return p.repo.Truncate(ctx)
}

// FoldBillingEvent computes the next bill row from the prior row and one
// event. Pure and deterministic.
func FoldBillingEvent(existing *models.BillingReadModel, event domain.Event) (*models.BillingReadModel, error) {
	fold, ok := billingFolds[event.Type]
	if !ok {
		return nil, fmt.Errorf("no billing fold for event type %s", event.Type)
	}
	return fold(existing, event)
}

func foldBillCreated(_ *models.BillingReadModel, event domain.Event) (*models.BillingReadModel, error) {
	var data domain.BillCreatedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	return &models.BillingReadModel{
		BillID:           data.BillID,
		PatientID:        data.PatientID,
		Currency:         data.Currency,
		Status:           models.BillStatusOpen,
		LastEventVersion: event.Version,
		CreatedAt:        event.Timestamp,
		UpdatedAt:        event.Timestamp,
	}, nil
}

func foldBillItemAdded(existing *models.BillingReadModel, event domain.Event) (*models.BillingReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no bill row for aggregate %s", event.AggregateID)
	}

	var data domain.BillItemAddedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	var items []billItem
	if len(existing.Items) > 0 {
		if err := json.Unmarshal(existing.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bill items: %w", err)
		}
	}
	items = append(items, billItem{
		ItemID:      data.ItemID,
		Description: data.Description,
		Quantity:    data.Quantity,
		UnitPrice:   data.UnitPrice,
	})
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bill items: %w", err)
	}

	next := *existing
	next.Items = itemsJSON
	next.ItemCount = len(items)
	next.TotalAmount = existing.TotalAmount + float64(data.Quantity)*data.UnitPrice
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}

func foldBillPaid(existing *models.BillingReadModel, event domain.Event) (*models.BillingReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no bill row for aggregate %s", event.AggregateID)
	}

	var data domain.BillPaidEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	next := *existing
	next.Status = models.BillStatusPaid
	next.PaidAmount = existing.PaidAmount + data.Amount
	next.PaymentMethod = data.PaymentMethod
	next.PaidAt = data.PaidAt
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}

func foldBillCancelled(existing *models.BillingReadModel, event domain.Event) (*models.BillingReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no bill row for aggregate %s", event.AggregateID)
	}

	var data domain.BillCancelledEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	next := *existing
	next.Status = models.BillStatusCancelled
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}
