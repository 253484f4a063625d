package calendar

import (
	"errors"
	"testing"
	"time"
)

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		t.Fatalf("parse %q: %v", start, err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		t.Fatalf("parse %q: %v", end, err)
	}
	r, err := NewDateRange(s, e)
	if err != nil {
		t.Fatalf("NewDateRange(%s, %s): %v", start, end, err)
	}
	return r
}

func TestNewDateRangeRejectsEmptyRange(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if _, err := NewDateRange(day, day); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for zero-length range, got %v", err)
	}
	if _, err := NewDateRange(day, day.AddDate(0, 0, -1)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for inverted range, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{
			name: "back-to-back stays never conflict",
			a:    mustRange(t, "2024-01-01", "2024-01-05"),
			b:    mustRange(t, "2024-01-05", "2024-01-10"),
			want: false,
		},
		{
			name: "containment is overlap",
			a:    mustRange(t, "2024-01-01", "2024-01-10"),
			b:    mustRange(t, "2024-01-03", "2024-01-05"),
			want: true,
		},
		{
			name: "partial overlap",
			a:    mustRange(t, "2024-01-01", "2024-01-06"),
			b:    mustRange(t, "2024-01-05", "2024-01-10"),
			want: true,
		},
		{
			name: "identical ranges",
			a:    mustRange(t, "2024-03-01", "2024-03-04"),
			b:    mustRange(t, "2024-03-01", "2024-03-04"),
			want: true,
		},
		{
			name: "disjoint ranges",
			a:    mustRange(t, "2024-01-01", "2024-01-03"),
			b:    mustRange(t, "2024-02-01", "2024-02-03"),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Fatalf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Fatalf("Overlaps(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	r := mustRange(t, "2024-01-01", "2024-01-05")

	if !r.Contains(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("check-in day should be occupied")
	}
	if !r.Contains(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("last night should be occupied")
	}
	if r.Contains(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("check-out day must not be occupied")
	}
	if r.Contains(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("day before check-in must not be occupied")
	}
}

func TestNights(t *testing.T) {
	if n := mustRange(t, "2024-01-01", "2024-01-05").Nights(); n != 4 {
		t.Fatalf("expected 4 nights, got %d", n)
	}
	if n := mustRange(t, "2024-01-01", "2024-01-02").Nights(); n != 1 {
		t.Fatalf("expected 1 night, got %d", n)
	}
}

func TestNightsAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Spring-forward weekend: the night of 2024-03-30/31 is 23 wall-clock
	// hours long. The guest still pays for 2 nights.
	start := time.Date(2024, 3, 29, 0, 0, 0, 0, loc)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, loc)
	r, err := NewDateRange(start, end)
	if err != nil {
		t.Fatalf("NewDateRange: %v", err)
	}
	if n := r.Nights(); n != 2 {
		t.Fatalf("expected 2 nights across DST transition, got %d", n)
	}
}

func TestDays(t *testing.T) {
	r := mustRange(t, "2024-01-01", "2024-01-04")

	var got []string
	for d := range r.Days() {
		got = append(got, d.Format("2006-01-02"))
	}
	want := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	if len(got) != len(want) {
		t.Fatalf("expected %d days, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("day %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// The sequence is restartable.
	count := 0
	for range r.Days() {
		count++
	}
	if count != len(want) {
		t.Fatalf("second iteration yielded %d days, want %d", count, len(want))
	}

	// Early break must not panic or over-yield.
	count = 0
	for range r.Days() {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected early break after 1 day, got %d", count)
	}
}
