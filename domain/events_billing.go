package domain

// BillCreatedEvent represents a bill created event
type BillCreatedEvent struct {
	BillID    string `json:"bill_id"`
	PatientID string `json:"patient_id"`
	Currency  string `json:"currency"`
}

// BillItemAddedEvent represents a bill item added event
type BillItemAddedEvent struct {
	BillID      string  `json:"bill_id"`
	ItemID      string  `json:"item_id"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// BillPaidEvent represents a bill paid event
type BillPaidEvent struct {
	BillID        string  `json:"bill_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	PaidAt        string  `json:"paid_at"`
	Reference     string  `json:"reference"`
}

// BillCancelledEvent represents a bill cancelled event
type BillCancelledEvent struct {
	BillID      string `json:"bill_id"`
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason"`
}
