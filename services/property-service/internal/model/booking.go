package model

import "time"

// Booking is the persisted reservation row including the monetary figures
// derived at creation time. Amounts are stored so that edits and reports see
// the exact numbers the guest was quoted, not a re-derivation.
type Booking struct {
	ID          string
	TenantID    string
	PropertyID  string
	CheckIn     time.Time
	CheckOut    time.Time
	BookingType BookingType
	Status      ReservationStatus
	GuestName   string
	GuestEmail  string
	GuestPhone  string

	BasePrice                float64
	Nights                   int
	SalesCommissionRate      float64
	CollectionCommissionRate float64
	TaxRate                  float64
	TaxApplied               bool

	TotalAmount                float64
	SalesCommissionAmount      float64
	CollectionCommissionAmount float64
	TaxAmount                  float64
	NetAmount                  float64

	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
}

// Reservation projects the booking onto its calendar footprint.
func (b *Booking) Reservation() Reservation {
	return Reservation{
		ID:          b.ID,
		TenantID:    b.TenantID,
		PropertyID:  b.PropertyID,
		CheckIn:     b.CheckIn,
		CheckOut:    b.CheckOut,
		BookingType: b.BookingType,
		Status:      b.Status,
		GuestName:   b.GuestName,
		CreatedAt:   b.CreatedAt,
	}
}
