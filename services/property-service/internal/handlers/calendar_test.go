package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmarkovic/hostwise/services/property-service/internal/calendar"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/tenant"
)

type stubSource struct {
	reservations []model.Reservation
}

func (s *stubSource) ActiveReservations(_ context.Context, _, _ string, f calendar.FetchFilters) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, res := range s.reservations {
		if f.ExcludeBookingID != "" && res.ID == f.ExcludeBookingID {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func asTenant(r *http.Request, tenantID string) *http.Request {
	return r.WithContext(tenant.WithIdentity(r.Context(), tenant.Identity{TenantID: tenantID}))
}

func TestCalendarCheckReportsConflicts(t *testing.T) {
	checkIn, _ := time.Parse("2006-01-02", "2024-06-10")
	checkOut, _ := time.Parse("2006-01-02", "2024-06-15")
	source := &stubSource{reservations: []model.Reservation{{
		ID:          "b1",
		TenantID:    "t1",
		PropertyID:  "p1",
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		BookingType: model.BookingTypeCommercial,
		Status:      model.StatusConfirmed,
		GuestName:   "Ada",
	}}}
	h := NewCalendarHandler(calendar.NewResolver(source), testLogger())

	body := `{"propertyId":"p1","checkIn":"2024-06-12","checkOut":"2024-06-14"}`
	req := asTenant(httptest.NewRequest(http.MethodPost, "/api/calendar/check", strings.NewReader(body)), "t1")
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp availabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Available {
		t.Fatal("expected unavailable")
	}
	if len(resp.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(resp.Conflicts))
	}
	c := resp.Conflicts[0]
	if c.BookingID != "b1" || c.ConflictType != "commercial" || c.CheckIn != "2024-06-10" {
		t.Fatalf("unexpected conflict item: %+v", c)
	}
}

func TestCalendarCheckRejectsBadDates(t *testing.T) {
	h := NewCalendarHandler(calendar.NewResolver(&stubSource{}), testLogger())

	body := `{"propertyId":"p1","checkIn":"2024-06-14","checkOut":"2024-06-12"}`
	req := asTenant(httptest.NewRequest(http.MethodPost, "/api/calendar/check", strings.NewReader(body)), "t1")
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCalendarCheckRequiresTenant(t *testing.T) {
	h := NewCalendarHandler(calendar.NewResolver(&stubSource{}), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/calendar/check", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestNextAvailableMarksOpenEndedPeriodNull(t *testing.T) {
	h := NewCalendarHandler(calendar.NewResolver(&stubSource{}), testLogger())

	req := asTenant(httptest.NewRequest(http.MethodGet, "/api/calendar/next-available?propertyId=p1&fromDate=2024-06-01", nil), "t1")
	rec := httptest.NewRecorder()
	h.NextAvailable(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one open-ended period, got %d", len(items))
	}
	if v, present := items[0]["checkOut"]; !present || v != nil {
		t.Fatalf("open-ended checkOut should be JSON null, got %v", v)
	}
	if items[0]["checkIn"] != "2024-06-01" {
		t.Fatalf("unexpected checkIn: %v", items[0]["checkIn"])
	}
}
