package model

import "time"

type MovementKind string

const (
	MovementIncome  MovementKind = "income"
	MovementExpense MovementKind = "expense"
)

// Movement is a bookkeeping row: money that entered or left a property's
// accounts. Income rows are written automatically when a booking is created;
// expense rows are entered by staff.
type Movement struct {
	ID            string
	TenantID      string
	PropertyID    string
	BookingID     string
	Kind          MovementKind
	Concept       string
	Amount        float64
	TaxPercentage float64
	TotalAmount   float64
	OccurredOn    time.Time
	CreatedAt     time.Time
}
