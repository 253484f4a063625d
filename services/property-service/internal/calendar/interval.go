package calendar

import (
	"errors"
	"iter"
	"time"
)

// ErrInvalidRange is returned when a range would have zero or negative length.
var ErrInvalidRange = errors.New("check-out must be after check-in")

// DateRange is a half-open interval of calendar days: [Start, End).
// The check-out day is not occupied, so back-to-back stays never collide.
// Construct through NewDateRange; downstream code assumes Start < End holds.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a validated range. Both endpoints are normalized to
// midnight UTC so that night counts survive DST transitions in whatever
// location the caller parsed the dates in.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: DayOf(start), End: DayOf(end)}
	if !r.End.After(r.Start) {
		return DateRange{}, ErrInvalidRange
	}
	return r, nil
}

// DayOf truncates t to its calendar day at midnight UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether two half-open ranges share at least one night.
// Ranges that merely touch at a boundary do not overlap.
func Overlaps(a, b DateRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether the given day is occupied by the range.
func (r DateRange) Contains(day time.Time) bool {
	d := DayOf(day)
	return !d.Before(r.Start) && d.Before(r.End)
}

// Nights returns the number of billable nights in the range. It counts
// calendar days, never wall-clock duration.
func (r DateRange) Nights() int {
	d := DayOf(r.End).Sub(DayOf(r.Start))
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}

// Days yields every occupied date from Start up to but excluding End.
// The sequence is pure and restartable.
func (r DateRange) Days() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := DayOf(r.Start); d.Before(r.End); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}
