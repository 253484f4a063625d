package calendar

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
)

// fakeSource mimics the repository: it applies the fetch filters the same
// way the SQL would, so the tests exercise the filter contract end to end.
type fakeSource struct {
	reservations []model.Reservation
	err          error
}

func (f *fakeSource) ActiveReservations(_ context.Context, tenantID, propertyID string, filters FetchFilters) ([]model.Reservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Reservation
	for _, res := range f.reservations {
		if res.TenantID != tenantID || res.PropertyID != propertyID {
			continue
		}
		if filters.ExcludeBookingID != "" && res.ID == filters.ExcludeBookingID {
			continue
		}
		if len(filters.Statuses) > 0 && !slices.Contains(filters.Statuses, res.Status) {
			continue
		}
		if len(filters.BookingTypes) > 0 && !slices.Contains(filters.BookingTypes, res.BookingType) {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func reservation(t *testing.T, id, checkIn, checkOut string, bt model.BookingType, status model.ReservationStatus) model.Reservation {
	t.Helper()
	return model.Reservation{
		ID:          id,
		TenantID:    "t1",
		PropertyID:  "p1",
		CheckIn:     day(t, checkIn),
		CheckOut:    day(t, checkOut),
		BookingType: bt,
		Status:      status,
	}
}

func TestCheckAvailabilityReportsEveryConflict(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-02-01", "2024-02-05", model.BookingTypeCommercial, model.StatusConfirmed),
		reservation(t, "r2", "2024-02-04", "2024-02-08", model.BookingTypeCommercial, model.StatusPending),
		reservation(t, "r3", "2024-02-09", "2024-02-12", model.BookingTypeClosedPeriod, model.StatusConfirmed),
		reservation(t, "r4", "2024-03-01", "2024-03-05", model.BookingTypeCommercial, model.StatusConfirmed),
	}}
	resolver := NewResolver(source)

	result, err := resolver.CheckAvailability(context.Background(), CheckQuery{
		TenantID:   "t1",
		PropertyID: "p1",
		Range:      mustRange(t, "2024-02-03", "2024-02-10"),
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if result.Available {
		t.Fatal("expected unavailable")
	}
	if len(result.Conflicts) != 3 {
		t.Fatalf("expected 3 conflicts, got %d", len(result.Conflicts))
	}
	for _, c := range result.Conflicts {
		if c.Reservation.ID == "r3" {
			if c.Type != model.BookingTypeClosedPeriod {
				t.Fatalf("r3 conflict type = %s, want closed_period", c.Type)
			}
			if !strings.Contains(c.Message, "closed period") {
				t.Fatalf("closed-period conflict message should say so, got %q", c.Message)
			}
		}
	}
}

func TestCheckAvailabilityBackToBackIsFree(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-01-01", "2024-01-05", model.BookingTypeCommercial, model.StatusConfirmed),
		reservation(t, "r2", "2024-01-10", "2024-01-15", model.BookingTypeCommercial, model.StatusConfirmed),
	}}
	resolver := NewResolver(source)

	result, err := resolver.CheckAvailability(context.Background(), CheckQuery{
		TenantID:   "t1",
		PropertyID: "p1",
		Range:      mustRange(t, "2024-01-05", "2024-01-10"),
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !result.Available {
		t.Fatalf("expected available between back-to-back stays, conflicts: %v", result.Conflicts)
	}
}

func TestCheckAvailabilityExcludesOwnBookingDuringEdit(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-01-01", "2024-01-05", model.BookingTypeCommercial, model.StatusConfirmed),
	}}
	resolver := NewResolver(source)

	result, err := resolver.CheckAvailability(context.Background(), CheckQuery{
		TenantID:         "t1",
		PropertyID:       "p1",
		Range:            mustRange(t, "2024-01-02", "2024-01-06"),
		ExcludeBookingID: "r1",
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !result.Available {
		t.Fatal("a booking must not conflict with itself during an edit")
	}
}

func TestCheckAvailabilityIgnoresCancelledByDefault(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-01-01", "2024-01-05", model.BookingTypeCommercial, model.StatusCancelled),
	}}
	resolver := NewResolver(source)

	result, err := resolver.CheckAvailability(context.Background(), CheckQuery{
		TenantID:   "t1",
		PropertyID: "p1",
		Range:      mustRange(t, "2024-01-02", "2024-01-04"),
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !result.Available {
		t.Fatal("cancelled reservations must not block the calendar")
	}

	// Callers can opt in to other status sets.
	result, err = resolver.CheckAvailability(context.Background(), CheckQuery{
		TenantID:   "t1",
		PropertyID: "p1",
		Range:      mustRange(t, "2024-01-02", "2024-01-04"),
		Statuses:   []model.ReservationStatus{model.StatusCancelled},
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if result.Available {
		t.Fatal("explicit status filter should surface the cancelled reservation")
	}
}

func TestCheckAvailabilityPropagatesSourceFailure(t *testing.T) {
	sourceErr := errors.New("connection refused")
	resolver := NewResolver(&fakeSource{err: sourceErr})

	_, err := resolver.CheckAvailability(context.Background(), CheckQuery{
		TenantID:   "t1",
		PropertyID: "p1",
		Range:      mustRange(t, "2024-01-02", "2024-01-04"),
	})
	if !errors.Is(err, sourceErr) {
		t.Fatalf("expected source error to propagate, got %v", err)
	}
}

func TestNextAvailablePeriodsMergesAdjacentBlocks(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-02-01", "2024-02-05", model.BookingTypeCommercial, model.StatusConfirmed),
		reservation(t, "r2", "2024-02-05", "2024-02-10", model.BookingTypeCommercial, model.StatusConfirmed),
	}}
	resolver := NewResolver(source)

	periods, err := resolver.NextAvailablePeriods(context.Background(), "t1", "p1", day(t, "2024-01-28"), 5)
	if err != nil {
		t.Fatalf("NextAvailablePeriods: %v", err)
	}
	// One gap before the occupied block, one open-ended tail. No zero-night
	// gap between the adjacent reservations.
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d: %+v", len(periods), periods)
	}
	first := periods[0]
	if !first.CheckIn.Equal(day(t, "2024-01-28")) || !first.CheckOut.Equal(day(t, "2024-02-01")) {
		t.Fatalf("unexpected first period: %+v", first)
	}
	if first.Nights != 4 {
		t.Fatalf("first period nights = %d, want 4", first.Nights)
	}
	tail := periods[1]
	if !tail.Open() {
		t.Fatalf("expected open-ended tail, got %+v", tail)
	}
	if !tail.CheckIn.Equal(day(t, "2024-02-10")) {
		t.Fatalf("tail should start at the last check-out, got %s", tail.CheckIn)
	}
}

func TestNextAvailablePeriodsHandlesContainedReservations(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-02-01", "2024-02-20", model.BookingTypeClosedPeriod, model.StatusConfirmed),
		reservation(t, "r2", "2024-02-05", "2024-02-08", model.BookingTypeCommercial, model.StatusConfirmed),
		reservation(t, "r3", "2024-02-25", "2024-02-27", model.BookingTypeCommercial, model.StatusConfirmed),
	}}
	resolver := NewResolver(source)

	periods, err := resolver.NextAvailablePeriods(context.Background(), "t1", "p1", day(t, "2024-02-01"), 5)
	if err != nil {
		t.Fatalf("NextAvailablePeriods: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d: %+v", len(periods), periods)
	}
	gap := periods[0]
	if !gap.CheckIn.Equal(day(t, "2024-02-20")) || !gap.CheckOut.Equal(day(t, "2024-02-25")) {
		t.Fatalf("unexpected gap: %+v", gap)
	}
	if gap.Nights != 5 {
		t.Fatalf("gap nights = %d, want 5", gap.Nights)
	}
}

func TestNextAvailablePeriodsRespectsCount(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-02-03", "2024-02-05", model.BookingTypeCommercial, model.StatusConfirmed),
		reservation(t, "r2", "2024-02-08", "2024-02-10", model.BookingTypeCommercial, model.StatusConfirmed),
		reservation(t, "r3", "2024-02-14", "2024-02-16", model.BookingTypeCommercial, model.StatusConfirmed),
	}}
	resolver := NewResolver(source)

	periods, err := resolver.NextAvailablePeriods(context.Background(), "t1", "p1", day(t, "2024-02-01"), 2)
	if err != nil {
		t.Fatalf("NextAvailablePeriods: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("expected exactly 2 periods, got %d", len(periods))
	}
	for _, p := range periods {
		if p.Open() {
			t.Fatalf("no open-ended period should be emitted when count is already met: %+v", p)
		}
	}
}

func TestDayGridClassifiesEachDate(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-03-02", "2024-03-04", model.BookingTypeCommercial, model.StatusConfirmed),
		reservation(t, "r2", "2024-03-03", "2024-03-05", model.BookingTypeClosedPeriod, model.StatusConfirmed),
	}}
	resolver := NewResolver(source)

	grid, err := resolver.DayGrid(context.Background(), "t1", "p1", mustRange(t, "2024-03-01", "2024-03-06"))
	if err != nil {
		t.Fatalf("DayGrid: %v", err)
	}
	if len(grid) != 5 {
		t.Fatalf("expected 5 days, got %d", len(grid))
	}

	want := []struct {
		status    DayStatus
		bookingID string
	}{
		{DayFree, ""},
		{DayBooked, "r1"},
		{DayClosed, "r2"}, // closed period wins over the overlapping booking
		{DayClosed, "r2"},
		{DayFree, ""},
	}
	for i, w := range want {
		if grid[i].Status != w.status || grid[i].BookingID != w.bookingID {
			t.Errorf("day %s: got (%s, %q), want (%s, %q)",
				grid[i].Date.Format("2006-01-02"), grid[i].Status, grid[i].BookingID, w.status, w.bookingID)
		}
	}
}

func TestValidateBookingRejectsBadInput(t *testing.T) {
	resolver := NewResolver(&fakeSource{})

	_, err := resolver.ValidateBooking(context.Background(), ValidateQuery{
		TenantID: "t1", PropertyID: "p1",
		CheckIn: "not-a-date", CheckOut: "2024-01-05",
	})
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	_, err = resolver.ValidateBooking(context.Background(), ValidateQuery{
		TenantID: "t1", PropertyID: "p1",
		CheckIn: "2024-01-05", CheckOut: "2024-01-05",
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}

	_, err = resolver.ValidateBooking(context.Background(), ValidateQuery{
		TenantID: "t1", PropertyID: "p1",
		CheckIn: "2024-01-05", CheckOut: "2024-01-08",
		BookingType: "maintenance",
	})
	if !errors.Is(err, ErrInvalidBookingType) {
		t.Fatalf("expected ErrInvalidBookingType, got %v", err)
	}
}

func TestValidateBookingDelegatesToCheck(t *testing.T) {
	source := &fakeSource{reservations: []model.Reservation{
		reservation(t, "r1", "2024-01-04", "2024-01-08", model.BookingTypeCommercial, model.StatusConfirmed),
	}}
	resolver := NewResolver(source)

	result, err := resolver.ValidateBooking(context.Background(), ValidateQuery{
		TenantID: "t1", PropertyID: "p1",
		CheckIn: "2024-01-05", CheckOut: "2024-01-07",
	})
	if err != nil {
		t.Fatalf("ValidateBooking: %v", err)
	}
	if result.Available || len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", result)
	}
}
