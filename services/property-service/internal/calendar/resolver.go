package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
)

var (
	// ErrInvalidDate is returned when a raw date string cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidBookingType is returned for an unknown booking type filter.
	ErrInvalidBookingType = errors.New("invalid booking type")
)

// ReservationSource supplies the reservations that occupy a property's
// calendar. Tenant id is a mandatory parameter: there is no row-level
// security below this layer, so every fetch is scoped explicitly.
//
// A source failure must surface as an error. Reporting "no reservations"
// on a failed fetch would make a busy property look free.
type ReservationSource interface {
	ActiveReservations(ctx context.Context, tenantID, propertyID string, f FetchFilters) ([]model.Reservation, error)
}

// FetchFilters narrows which reservations count as blocking.
type FetchFilters struct {
	// ExcludeBookingID skips one reservation, so an edit does not conflict
	// with the booking being edited.
	ExcludeBookingID string
	// BookingTypes restricts the categories considered. Empty means all.
	BookingTypes []model.BookingType
	// Statuses restricts which lifecycle states block the calendar.
	// Empty means the default blocking set: pending and confirmed.
	Statuses []model.ReservationStatus
}

// BlockingStatuses is the default set of states that occupy the calendar.
// Cancelled reservations never block unless a caller asks for them.
var BlockingStatuses = []model.ReservationStatus{model.StatusPending, model.StatusConfirmed}

// Conflict describes one reservation that collides with a candidate range.
type Conflict struct {
	Reservation model.Reservation `json:"reservation"`
	Type        model.BookingType `json:"conflictType"`
	Message     string            `json:"message"`
}

// AvailabilityResult reports whether a range is free and, when it is not,
// every reservation in the way.
type AvailabilityResult struct {
	Available bool       `json:"available"`
	Conflicts []Conflict `json:"conflicts"`
}

// AvailablePeriod is a maximal open window between occupied blocks.
// A zero CheckOut means the window is open-ended.
type AvailablePeriod struct {
	CheckIn  time.Time
	CheckOut time.Time
	Nights   int
}

// Open reports whether the period has no upper bound.
func (p AvailablePeriod) Open() bool {
	return p.CheckOut.IsZero()
}

// Resolver answers availability questions for a property's calendar.
// It is stateless and safe for concurrent use; every call fetches fresh
// reservations from the source.
//
// The result is advisory. Two concurrent writers can both see a clean
// check; only the storage layer's exclusion constraint actually prevents a
// double booking.
type Resolver struct {
	source ReservationSource
}

func NewResolver(source ReservationSource) *Resolver {
	return &Resolver{source: source}
}

// CheckQuery identifies the candidate stay being tested.
type CheckQuery struct {
	TenantID         string
	PropertyID       string
	Range            DateRange
	ExcludeBookingID string
	BookingTypes     []model.BookingType
	Statuses         []model.ReservationStatus
}

// CheckAvailability tests a candidate range against every blocking
// reservation and returns all collisions, not just the first. Containment,
// partial overlap and exact cover are all caught by the single half-open
// overlap test.
func (r *Resolver) CheckAvailability(ctx context.Context, q CheckQuery) (AvailabilityResult, error) {
	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = BlockingStatuses
	}
	reservations, err := r.source.ActiveReservations(ctx, q.TenantID, q.PropertyID, FetchFilters{
		ExcludeBookingID: q.ExcludeBookingID,
		BookingTypes:     q.BookingTypes,
		Statuses:         statuses,
	})
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("fetch reservations for property %s: %w", q.PropertyID, err)
	}

	var conflicts []Conflict
	for _, res := range reservations {
		if !Overlaps(q.Range, reservationRange(res)) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Reservation: res,
			Type:        res.BookingType,
			Message:     conflictMessage(res),
		})
	}
	return AvailabilityResult{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// NextAvailablePeriods walks the property's reservations from fromDate and
// returns up to count open windows. Adjacent or overlapping reservations are
// merged by the cursor advance, so back-to-back stays never produce a
// phantom zero-night gap. When the calendar runs out, one final open-ended
// period is emitted if there is still room in count.
func (r *Resolver) NextAvailablePeriods(ctx context.Context, tenantID, propertyID string, fromDate time.Time, count int) ([]AvailablePeriod, error) {
	if count <= 0 {
		return nil, nil
	}
	reservations, err := r.source.ActiveReservations(ctx, tenantID, propertyID, FetchFilters{Statuses: BlockingStatuses})
	if err != nil {
		return nil, fmt.Errorf("fetch reservations for property %s: %w", propertyID, err)
	}

	from := DayOf(fromDate)
	occupied := make([]DateRange, 0, len(reservations))
	for _, res := range reservations {
		rr := reservationRange(res)
		if rr.End.After(from) {
			occupied = append(occupied, rr)
		}
	}
	sort.Slice(occupied, func(i, j int) bool {
		return occupied[i].Start.Before(occupied[j].Start)
	})

	var periods []AvailablePeriod
	cursor := from
	for _, rr := range occupied {
		if len(periods) >= count {
			return periods, nil
		}
		if rr.Start.After(cursor) {
			gap := DateRange{Start: cursor, End: rr.Start}
			periods = append(periods, AvailablePeriod{
				CheckIn:  gap.Start,
				CheckOut: gap.End,
				Nights:   gap.Nights(),
			})
		}
		if rr.End.After(cursor) {
			cursor = rr.End
		}
	}
	if len(periods) < count {
		periods = append(periods, AvailablePeriod{CheckIn: cursor})
	}
	return periods, nil
}

// DayStatus classifies one calendar date for the availability grid.
type DayStatus string

const (
	DayFree   DayStatus = "free"
	DayBooked DayStatus = "booked"
	DayClosed DayStatus = "closed"
)

type Day struct {
	Date      time.Time
	Status    DayStatus
	BookingID string
}

// DayGrid classifies every date in the window. A date covered by a closed
// period is "closed" even when a commercial booking also touches it; closed
// periods are the stronger block.
func (r *Resolver) DayGrid(ctx context.Context, tenantID, propertyID string, window DateRange) ([]Day, error) {
	reservations, err := r.source.ActiveReservations(ctx, tenantID, propertyID, FetchFilters{Statuses: BlockingStatuses})
	if err != nil {
		return nil, fmt.Errorf("fetch reservations for property %s: %w", propertyID, err)
	}

	grid := make([]Day, 0, window.Nights())
	for date := range window.Days() {
		day := Day{Date: date, Status: DayFree}
		for _, res := range reservations {
			if !reservationRange(res).Contains(date) {
				continue
			}
			if res.BookingType == model.BookingTypeClosedPeriod {
				day.Status = DayClosed
				day.BookingID = res.ID
				break
			}
			day.Status = DayBooked
			day.BookingID = res.ID
		}
		grid = append(grid, day)
	}
	return grid, nil
}

// ValidateQuery carries raw request inputs for pre-save validation.
type ValidateQuery struct {
	TenantID         string
	PropertyID       string
	CheckIn          string
	CheckOut         string
	ExcludeBookingID string
	BookingType      string
}

// ValidateBooking parses and validates raw date inputs, then delegates to
// CheckAvailability. Unparseable dates fail with ErrInvalidDate and a
// check-out on or before check-in fails with ErrInvalidRange, both before
// any reservation is fetched.
func (r *Resolver) ValidateBooking(ctx context.Context, q ValidateQuery) (AvailabilityResult, error) {
	checkIn, err := ParseDate(q.CheckIn)
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("checkIn: %w", err)
	}
	checkOut, err := ParseDate(q.CheckOut)
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("checkOut: %w", err)
	}
	rng, err := NewDateRange(checkIn, checkOut)
	if err != nil {
		return AvailabilityResult{}, err
	}

	var types []model.BookingType
	if q.BookingType != "" {
		bt, err := ParseBookingType(q.BookingType)
		if err != nil {
			return AvailabilityResult{}, err
		}
		types = append(types, bt)
	}

	return r.CheckAvailability(ctx, CheckQuery{
		TenantID:         q.TenantID,
		PropertyID:       q.PropertyID,
		Range:            rng,
		ExcludeBookingID: q.ExcludeBookingID,
		BookingTypes:     types,
	})
}

// ParseDate accepts a plain calendar date or an RFC 3339 timestamp.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

func ParseBookingType(raw string) (model.BookingType, error) {
	switch model.BookingType(raw) {
	case model.BookingTypeCommercial:
		return model.BookingTypeCommercial, nil
	case model.BookingTypeClosedPeriod:
		return model.BookingTypeClosedPeriod, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBookingType, raw)
}

func reservationRange(res model.Reservation) DateRange {
	return DateRange{Start: DayOf(res.CheckIn), End: DayOf(res.CheckOut)}
}

func conflictMessage(res model.Reservation) string {
	from := DayOf(res.CheckIn).Format("2006-01-02")
	to := DayOf(res.CheckOut).Format("2006-01-02")
	if res.BookingType == model.BookingTypeClosedPeriod {
		return fmt.Sprintf("dates fall within a closed period (%s to %s)", from, to)
	}
	if res.GuestName != "" {
		return fmt.Sprintf("dates overlap an existing booking for %s (%s to %s)", res.GuestName, from, to)
	}
	return fmt.Sprintf("dates overlap an existing booking (%s to %s)", from, to)
}
