package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmarkovic/hostwise/services/property-service/internal/calendar"
	"github.com/dmarkovic/hostwise/services/property-service/internal/tenant"
)

type CalendarHandler struct {
	resolver *calendar.Resolver
	logger   *slog.Logger
}

func NewCalendarHandler(resolver *calendar.Resolver, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{resolver: resolver, logger: logger}
}

type checkAvailabilityRequest struct {
	PropertyID       string `json:"propertyId"`
	CheckIn          string `json:"checkIn"`
	CheckOut         string `json:"checkOut"`
	ExcludeBookingID string `json:"excludeBookingId"`
	BookingType      string `json:"bookingType"`
}

type availablePeriodItem struct {
	CheckIn  string  `json:"checkIn"`
	CheckOut *string `json:"checkOut"`
	Nights   int     `json:"nights"`
}

type conflictItem struct {
	BookingID    string `json:"bookingId"`
	CheckIn      string `json:"checkIn"`
	CheckOut     string `json:"checkOut"`
	ConflictType string `json:"conflictType"`
	Status       string `json:"status"`
	GuestName    string `json:"guestName,omitempty"`
	Message      string `json:"message"`
}

type availabilityResponse struct {
	Available bool           `json:"available"`
	Conflicts []conflictItem `json:"conflicts"`
}

func toAvailabilityResponse(result calendar.AvailabilityResult) availabilityResponse {
	resp := availabilityResponse{
		Available: result.Available,
		Conflicts: make([]conflictItem, 0, len(result.Conflicts)),
	}
	for _, c := range result.Conflicts {
		resp.Conflicts = append(resp.Conflicts, conflictItem{
			BookingID:    c.Reservation.ID,
			CheckIn:      c.Reservation.CheckIn.Format("2006-01-02"),
			CheckOut:     c.Reservation.CheckOut.Format("2006-01-02"),
			ConflictType: string(c.Type),
			Status:       string(c.Reservation.Status),
			GuestName:    c.Reservation.GuestName,
			Message:      c.Message,
		})
	}
	return resp
}

// Check answers "can these dates be booked" with the full conflict list, so
// the calendar UI can show staff exactly what is in the way.
func (h *CalendarHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req checkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	h.runValidate(w, r, id.TenantID, req)
}

// Validate is the pre-save gate for the booking form. Same semantics as
// Check; kept as its own route so the form and the calendar view can evolve
// separately.
func (h *CalendarHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req checkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	h.runValidate(w, r, id.TenantID, req)
}

type dayGridItem struct {
	Date      string `json:"date"`
	Status    string `json:"status"`
	BookingID string `json:"bookingId,omitempty"`
}

// Availability renders the calendar page's day grid: one row per date in the
// requested window, marked free, booked, or closed.
func (h *CalendarHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	propertyID := strings.TrimSpace(q.Get("propertyId"))
	if propertyID == "" {
		http.Error(w, "propertyId required", http.StatusBadRequest)
		return
	}
	startDate, err := calendar.ParseDate(strings.TrimSpace(q.Get("startDate")))
	if err != nil {
		http.Error(w, "startDate must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	endDate, err := calendar.ParseDate(strings.TrimSpace(q.Get("endDate")))
	if err != nil {
		http.Error(w, "endDate must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	window, err := calendar.NewDateRange(startDate, endDate)
	if err != nil {
		http.Error(w, "endDate must be after startDate", http.StatusBadRequest)
		return
	}
	if window.Nights() > 366 {
		http.Error(w, "window cannot exceed one year", http.StatusBadRequest)
		return
	}

	grid, err := h.resolver.DayGrid(r.Context(), id.TenantID, propertyID, window)
	if err != nil {
		h.logger.Error("day grid failed", "err", err, "property_id", propertyID)
		http.Error(w, "availability lookup failed", http.StatusInternalServerError)
		return
	}

	items := make([]dayGridItem, 0, len(grid))
	for _, day := range grid {
		items = append(items, dayGridItem{
			Date:      day.Date.Format("2006-01-02"),
			Status:    string(day.Status),
			BookingID: day.BookingID,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CalendarHandler) runValidate(w http.ResponseWriter, r *http.Request, tenantID string, req checkAvailabilityRequest) {
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	if req.PropertyID == "" {
		http.Error(w, "propertyId required", http.StatusBadRequest)
		return
	}

	result, err := h.resolver.ValidateBooking(r.Context(), calendar.ValidateQuery{
		TenantID:         tenantID,
		PropertyID:       req.PropertyID,
		CheckIn:          strings.TrimSpace(req.CheckIn),
		CheckOut:         strings.TrimSpace(req.CheckOut),
		ExcludeBookingID: strings.TrimSpace(req.ExcludeBookingID),
		BookingType:      strings.TrimSpace(req.BookingType),
	})
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrInvalidDate):
			http.Error(w, "checkIn and checkOut must be YYYY-MM-DD dates", http.StatusBadRequest)
		case errors.Is(err, calendar.ErrInvalidRange):
			http.Error(w, "checkOut must be after checkIn", http.StatusBadRequest)
		case errors.Is(err, calendar.ErrInvalidBookingType):
			http.Error(w, "bookingType must be commercial or closed_period", http.StatusBadRequest)
		default:
			h.logger.Error("availability check failed", "err", err, "property_id", req.PropertyID)
			http.Error(w, "availability check failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, toAvailabilityResponse(result))
}

// NextAvailable lists upcoming open windows for a property.
func (h *CalendarHandler) NextAvailable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	propertyID := strings.TrimSpace(q.Get("propertyId"))
	if propertyID == "" {
		http.Error(w, "propertyId required", http.StatusBadRequest)
		return
	}

	fromDate := time.Now().UTC()
	if raw := strings.TrimSpace(q.Get("fromDate")); raw != "" {
		parsed, err := calendar.ParseDate(raw)
		if err != nil {
			http.Error(w, "fromDate must be a YYYY-MM-DD date", http.StatusBadRequest)
			return
		}
		fromDate = parsed
	}

	count := 5
	if raw := strings.TrimSpace(q.Get("count")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 50 {
			http.Error(w, "count must be between 1 and 50", http.StatusBadRequest)
			return
		}
		count = n
	}

	periods, err := h.resolver.NextAvailablePeriods(r.Context(), id.TenantID, propertyID, fromDate, count)
	if err != nil {
		h.logger.Error("next available lookup failed", "err", err, "property_id", propertyID)
		http.Error(w, "availability lookup failed", http.StatusInternalServerError)
		return
	}

	items := make([]availablePeriodItem, 0, len(periods))
	for _, p := range periods {
		item := availablePeriodItem{
			CheckIn: p.CheckIn.Format("2006-01-02"),
			Nights:  p.Nights,
		}
		if !p.Open() {
			checkOut := p.CheckOut.Format("2006-01-02")
			item.CheckOut = &checkOut
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
