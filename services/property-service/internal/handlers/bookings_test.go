package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmarkovic/hostwise/services/property-service/internal/calendar"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/outbox"
	"github.com/dmarkovic/hostwise/services/property-service/internal/rates"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
)

func newBookingHandler(source *stubSource) *BookingHandler {
	return NewBookingHandler(
		storage.NewBookingRepository(nil),
		storage.NewMovementRepository(nil),
		outbox.NewRepository(nil),
		calendar.NewResolver(source),
		rates.NewStaticProvider(model.TenantRates{}),
		testLogger(),
	)
}

func TestCreateBookingRejectsOutOfRangeRates(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "negative sales commission",
			body: `{"propertyId":"p1","checkIn":"2024-06-10","checkOut":"2024-06-12","guestName":"Ada","basePrice":100,"salesCommissionRate":-50}`,
			want: "salesCommissionRate",
		},
		{
			name: "collection commission above 100",
			body: `{"propertyId":"p1","checkIn":"2024-06-10","checkOut":"2024-06-12","guestName":"Ada","basePrice":100,"collectionCommissionRate":400}`,
			want: "collectionCommissionRate",
		},
		{
			name: "tax rate above 100",
			body: `{"propertyId":"p1","checkIn":"2024-06-10","checkOut":"2024-06-12","guestName":"Ada","basePrice":100,"taxRate":1000}`,
			want: "taxRate",
		},
	}

	h := newBookingHandler(&stubSource{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asTenant(httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(tc.body)), "t1")
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("body %q does not name %s", rec.Body.String(), tc.want)
			}
		})
	}
}

func TestRateInRange(t *testing.T) {
	for v, want := range map[float64]bool{0: true, 100: true, 21.5: true, -0.01: false, 100.01: false} {
		if got := rateInRange(v); got != want {
			t.Errorf("rateInRange(%v) = %v, want %v", v, got, want)
		}
	}
}

func TestIncomeMovementTracksBookingState(t *testing.T) {
	checkIn, _ := time.Parse("2006-01-02", "2024-06-10")
	base := model.Booking{
		ID:          "b1",
		TenantID:    "t1",
		PropertyID:  "p1",
		CheckIn:     checkIn,
		BookingType: model.BookingTypeCommercial,
		Status:      model.StatusConfirmed,
		NetAmount:   229.5,
	}

	m := incomeMovementFor(&base)
	if m == nil {
		t.Fatal("expected an income movement for a confirmed commercial booking")
	}
	if m.Kind != model.MovementIncome || m.Amount != 229.5 || m.TotalAmount != 229.5 {
		t.Fatalf("movement = %+v", m)
	}
	if m.Concept != "booking b1" || !m.OccurredOn.Equal(checkIn) {
		t.Fatalf("movement concept/date = %q %v", m.Concept, m.OccurredOn)
	}

	// A reschedule changes net and check-in; the derived row must follow.
	moved := base
	moved.CheckIn = checkIn.AddDate(0, 0, 7)
	moved.NetAmount = 310
	m = incomeMovementFor(&moved)
	if m == nil || m.Amount != 310 || !m.OccurredOn.Equal(moved.CheckIn) {
		t.Fatalf("rescheduled movement = %+v", m)
	}

	cancelled := base
	cancelled.Status = model.StatusCancelled
	if incomeMovementFor(&cancelled) != nil {
		t.Fatal("cancelled bookings must not keep income on the books")
	}

	closed := base
	closed.BookingType = model.BookingTypeClosedPeriod
	if incomeMovementFor(&closed) != nil {
		t.Fatal("closed periods earn nothing")
	}

	zero := base
	zero.NetAmount = 0
	if incomeMovementFor(&zero) != nil {
		t.Fatal("zero-net bookings need no income row")
	}
}
