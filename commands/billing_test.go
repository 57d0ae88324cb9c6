package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
)

func TestBillLifecycle(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewBillingHandler(store, 3)
	ctx := context.Background()

	createCmd, err := domain.NewCommand(domain.CmdBillCreate, CreateBillCommand{
		BillID:    "bill-1",
		PatientID: "patient-1",
	})
	require.NoError(t, err)
	result, err := handler.HandleCreateBill(ctx, createCmd)
	require.NoError(t, err)
	require.Equal(t, 1, result.Events[0].Version)

	itemCmd, err := domain.NewCommand(domain.CmdBillItemAdd, AddBillItemCommand{
		BillID:      "bill-1",
		Description: "X-ray",
		Quantity:    2,
		UnitPrice:   75.50,
	})
	require.NoError(t, err)
	result, err = handler.HandleAddBillItem(ctx, itemCmd)
	require.NoError(t, err)
	require.Equal(t, 2, result.Events[0].Version)

	payCmd, err := domain.NewCommand(domain.CmdBillPay, PayBillCommand{
		BillID:        "bill-1",
		Amount:        151.00,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	result, err = handler.HandlePayBill(ctx, payCmd)
	require.NoError(t, err)
	require.Equal(t, domain.BillPaid, result.Events[0].Type)
}

func TestPayBillTwiceRejected(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewBillingHandler(store, 3)
	ctx := context.Background()

	createCmd, err := domain.NewCommand(domain.CmdBillCreate, CreateBillCommand{
		BillID:    "bill-1",
		PatientID: "patient-1",
	})
	require.NoError(t, err)
	_, err = handler.HandleCreateBill(ctx, createCmd)
	require.NoError(t, err)

	payCmd, err := domain.NewCommand(domain.CmdBillPay, PayBillCommand{
		BillID:        "bill-1",
		Amount:        100,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	_, err = handler.HandlePayBill(ctx, payCmd)
	require.NoError(t, err)

	payAgain, err := domain.NewCommand(domain.CmdBillPay, PayBillCommand{
		BillID:        "bill-1",
		Amount:        100,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	_, err = handler.HandlePayBill(ctx, payAgain)
	require.True(t, domain.IsValidationError(err))
}

func TestAddItemToCancelledBillRejected(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewBillingHandler(store, 3)
	ctx := context.Background()

	createCmd, err := domain.NewCommand(domain.CmdBillCreate, CreateBillCommand{
		BillID:    "bill-1",
		PatientID: "patient-1",
	})
	require.NoError(t, err)
	_, err = handler.HandleCreateBill(ctx, createCmd)
	require.NoError(t, err)

	cancelCmd, err := domain.NewCommand(domain.CmdBillCancel, CancelBillCommand{
		BillID: "bill-1",
		Reason: "duplicate",
	})
	require.NoError(t, err)
	_, err = handler.HandleCancelBill(ctx, cancelCmd)
	require.NoError(t, err)

	itemCmd, err := domain.NewCommand(domain.CmdBillItemAdd, AddBillItemCommand{
		BillID:      "bill-1",
		Description: "lab work",
		Quantity:    1,
		UnitPrice:   40,
	})
	require.NoError(t, err)
	_, err = handler.HandleAddBillItem(ctx, itemCmd)
	require.True(t, domain.IsValidationError(err))
}

func TestPayMissingBillRejected(t *testing.T) {
	store := eventstore.NewMemoryEventStore(nil)
	handler := NewBillingHandler(store, 3)

	payCmd, err := domain.NewCommand(domain.CmdBillPay, PayBillCommand{
		BillID:        "bill-404",
		Amount:        10,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	_, err = handler.HandlePayBill(context.Background(), payCmd)
	require.True(t, domain.IsValidationError(err))
}
