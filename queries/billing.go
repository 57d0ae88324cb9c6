package queries

import (
	"context"
	"errors"
	"fmt"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/repository"
)

// BillingQueryHandler serves billing queries from the read model
type BillingQueryHandler struct {
	repo repository.BillingRepository
}

// NewBillingQueryHandler creates a billing query handler
func NewBillingQueryHandler(repo repository.BillingRepository) *BillingQueryHandler {
	return &BillingQueryHandler{repo: repo}
}

// Register binds the billing query types on the dispatcher
func (h *BillingQueryHandler) Register(d *Dispatcher) error {
	bindings := map[domain.QueryType]HandlerFunc{
		domain.QueryGetBill:   h.HandleGetBill,
		domain.QueryListBills: h.HandleListBills,
	}
	for queryType, handler := range bindings {
		if err := d.Register(queryType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleGetBill returns one bill by ID, nil when unknown
func (h *BillingQueryHandler) HandleGetBill(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	billID, err := requireParam(q, "bill_id")
	if err != nil {
		return domain.QueryResult{}, err
	}

	row, err := h.repo.GetByID(ctx, billID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.QueryResult{Data: nil}, nil
		}
		return domain.QueryResult{}, fmt.Errorf("failed to load bill: %w", err)
	}
	return domain.QueryResult{Data: row, TotalCount: 1}, nil
}

// HandleListBills returns a filtered, paginated bill list
func (h *BillingQueryHandler) HandleListBills(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	page, pageSize := pagination(q)
	filter := repository.BillFilter{
		PatientID: q.Param("patient_id"),
		Status:    q.Param("status"),
	}

	rows, total, err := h.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("failed to list bills: %w", err)
	}
	return domain.QueryResult{
		Data:       rows,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
