package model

import "time"

// BookingType distinguishes revenue stays from owner blocks. Both occupy the
// calendar, but conflict messages and reporting treat them differently.
type BookingType string

const (
	BookingTypeCommercial   BookingType = "commercial"
	BookingTypeClosedPeriod BookingType = "closed_period"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Reservation is the calendar-facing view of a booking row: just enough to
// answer availability questions and explain conflicts to staff.
type Reservation struct {
	ID          string
	TenantID    string
	PropertyID  string
	CheckIn     time.Time
	CheckOut    time.Time
	BookingType BookingType
	Status      ReservationStatus
	GuestName   string
	CreatedAt   time.Time
}
