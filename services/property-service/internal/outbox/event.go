package outbox

import (
	"encoding/json"
	"time"

	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
)

// Topic names double as event types. One event per topic.
const (
	TopicBookingCreated     = "hostwise.booking.created.v1"
	TopicBookingRescheduled = "hostwise.booking.rescheduled.v1"
	TopicBookingCancelled   = "hostwise.booking.cancelled.v1"
)

// Event is the domain event envelope written to the outbox table. The Kafka
// topic name equals EventType.
type Event struct {
	TenantID      string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type bookingPayload struct {
	BookingID   string    `json:"bookingId"`
	TenantID    string    `json:"tenantId"`
	PropertyID  string    `json:"propertyId"`
	CheckIn     string    `json:"checkIn"`
	CheckOut    string    `json:"checkOut"`
	BookingType string    `json:"bookingType"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"totalAmount"`
	NetAmount   float64   `json:"netAmount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func bookingEvent(eventType string, b *model.Booking) (Event, error) {
	payload, err := json.Marshal(bookingPayload{
		BookingID:   b.ID,
		TenantID:    b.TenantID,
		PropertyID:  b.PropertyID,
		CheckIn:     b.CheckIn.Format("2006-01-02"),
		CheckOut:    b.CheckOut.Format("2006-01-02"),
		BookingType: string(b.BookingType),
		Status:      string(b.Status),
		TotalAmount: b.TotalAmount,
		NetAmount:   b.NetAmount,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		TenantID:      b.TenantID,
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

func BookingCreated(b *model.Booking) (Event, error) {
	return bookingEvent(TopicBookingCreated, b)
}

func BookingRescheduled(b *model.Booking) (Event, error) {
	return bookingEvent(TopicBookingRescheduled, b)
}

func BookingCancelled(b *model.Booking) (Event, error) {
	return bookingEvent(TopicBookingCancelled, b)
}
