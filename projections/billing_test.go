package projections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
)

func billEvent(t *testing.T, eventType string, version int, payload interface{}) domain.Event {
	t.Helper()
	event, err := domain.NewEvent(eventType, domain.AggregateBill, "bill-1", version, payload)
	require.NoError(t, err)
	event.Timestamp = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC).Add(time.Duration(version) * time.Second)
	return event
}

func TestFoldBillAccumulatesItems(t *testing.T) {
	row, err := FoldBillingEvent(nil, billEvent(t, domain.BillCreated, 1, domain.BillCreatedEvent{
		BillID:    "bill-1",
		PatientID: "patient-1",
		Currency:  "USD",
	}))
	require.NoError(t, err)
	require.Equal(t, models.BillStatusOpen, row.Status)
	require.Zero(t, row.TotalAmount)

	row, err = FoldBillingEvent(row, billEvent(t, domain.BillItemAdded, 2, domain.BillItemAddedEvent{
		BillID:      "bill-1",
		ItemID:      "item-1",
		Description: "X-ray",
		Quantity:    2,
		UnitPrice:   75.50,
	}))
	require.NoError(t, err)
	require.Equal(t, 1, row.ItemCount)
	require.InDelta(t, 151.00, row.TotalAmount, 0.001)

	row, err = FoldBillingEvent(row, billEvent(t, domain.BillItemAdded, 3, domain.BillItemAddedEvent{
		BillID:      "bill-1",
		ItemID:      "item-2",
		Description: "consultation",
		Quantity:    1,
		UnitPrice:   120,
	}))
	require.NoError(t, err)
	require.Equal(t, 2, row.ItemCount)
	require.InDelta(t, 271.00, row.TotalAmount, 0.001)

	row, err = FoldBillingEvent(row, billEvent(t, domain.BillPaid, 4, domain.BillPaidEvent{
		BillID:        "bill-1",
		Amount:        271.00,
		PaymentMethod: "card",
	}))
	require.NoError(t, err)
	require.Equal(t, models.BillStatusPaid, row.Status)
	require.InDelta(t, 271.00, row.PaidAmount, 0.001)
	require.Equal(t, 4, row.LastEventVersion)
}

func TestFoldBillCancelled(t *testing.T) {
	row, err := FoldBillingEvent(nil, billEvent(t, domain.BillCreated, 1, domain.BillCreatedEvent{
		BillID:    "bill-1",
		PatientID: "patient-1",
	}))
	require.NoError(t, err)

	row, err = FoldBillingEvent(row, billEvent(t, domain.BillCancelled, 2, domain.BillCancelledEvent{
		BillID: "bill-1",
		Reason: "duplicate",
	}))
	require.NoError(t, err)
	require.Equal(t, models.BillStatusCancelled, row.Status)
}

func TestFoldBillItemWithoutBill(t *testing.T) {
	_, err := FoldBillingEvent(nil, billEvent(t, domain.BillItemAdded, 1, domain.BillItemAddedEvent{
		BillID:   "bill-1",
		Quantity: 1,
	}))
	require.Error(t, err)
}
