package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmarkovic/hostwise/services/property-service/internal/calendar"
	"github.com/dmarkovic/hostwise/services/property-service/internal/financials"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/outbox"
	"github.com/dmarkovic/hostwise/services/property-service/internal/rates"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
	"github.com/dmarkovic/hostwise/services/property-service/internal/tenant"
)

type BookingHandler struct {
	repo       *storage.BookingRepository
	movements  *storage.MovementRepository
	outboxRepo *outbox.Repository
	resolver   *calendar.Resolver
	rates      rates.Provider
	logger     *slog.Logger
}

func NewBookingHandler(repo *storage.BookingRepository, movements *storage.MovementRepository, outboxRepo *outbox.Repository, resolver *calendar.Resolver, ratesProvider rates.Provider, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		repo:       repo,
		movements:  movements,
		outboxRepo: outboxRepo,
		resolver:   resolver,
		rates:      ratesProvider,
		logger:     logger,
	}
}

type createBookingRequest struct {
	PropertyID  string `json:"propertyId"`
	CheckIn     string `json:"checkIn"`
	CheckOut    string `json:"checkOut"`
	BookingType string `json:"bookingType"`
	GuestName   string `json:"guestName"`
	GuestEmail  string `json:"guestEmail"`
	GuestPhone  string `json:"guestPhone"`

	BasePrice float64 `json:"basePrice"`
	// When omitted, the tenant's default rates apply.
	SalesCommissionRate      *float64 `json:"salesCommissionRate"`
	CollectionCommissionRate *float64 `json:"collectionCommissionRate"`
	TaxRate                  *float64 `json:"taxRate"`
	ApplyTax                 *bool    `json:"applyTax"`
}

type bookingResponse struct {
	BookingID   string `json:"bookingId"`
	PropertyID  string `json:"propertyId"`
	CheckIn     string `json:"checkIn"`
	CheckOut    string `json:"checkOut"`
	BookingType string `json:"bookingType"`
	Status      string `json:"status"`
	GuestName   string `json:"guestName,omitempty"`
	Nights      int    `json:"nights"`

	TotalAmount                float64 `json:"totalAmount"`
	SalesCommissionAmount      float64 `json:"salesCommissionAmount"`
	CollectionCommissionAmount float64 `json:"collectionCommissionAmount"`
	TaxAmount                  float64 `json:"taxAmount"`
	NetAmount                  float64 `json:"netAmount"`

	CancelledAt string `json:"cancelledAt,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type conflictErrorResponse struct {
	Error     string         `json:"error"`
	Conflicts []conflictItem `json:"conflicts"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.PropertyID = strings.TrimSpace(req.PropertyID)
	req.GuestName = strings.TrimSpace(req.GuestName)
	if req.PropertyID == "" {
		http.Error(w, "propertyId required", http.StatusBadRequest)
		return
	}

	bookingType := model.BookingTypeCommercial
	if raw := strings.TrimSpace(req.BookingType); raw != "" {
		parsed, err := calendar.ParseBookingType(raw)
		if err != nil {
			http.Error(w, "bookingType must be commercial or closed_period", http.StatusBadRequest)
			return
		}
		bookingType = parsed
	}
	if bookingType == model.BookingTypeCommercial && req.GuestName == "" {
		http.Error(w, "guestName required for commercial bookings", http.StatusBadRequest)
		return
	}
	if req.BasePrice < 0 {
		http.Error(w, "basePrice cannot be negative", http.StatusBadRequest)
		return
	}
	if req.SalesCommissionRate != nil && !rateInRange(*req.SalesCommissionRate) {
		http.Error(w, "salesCommissionRate must be between 0 and 100", http.StatusBadRequest)
		return
	}
	if req.CollectionCommissionRate != nil && !rateInRange(*req.CollectionCommissionRate) {
		http.Error(w, "collectionCommissionRate must be between 0 and 100", http.StatusBadRequest)
		return
	}
	if req.TaxRate != nil && !rateInRange(*req.TaxRate) {
		http.Error(w, "taxRate must be between 0 and 100", http.StatusBadRequest)
		return
	}

	checkIn, err := calendar.ParseDate(strings.TrimSpace(req.CheckIn))
	if err != nil {
		http.Error(w, "checkIn must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	checkOut, err := calendar.ParseDate(strings.TrimSpace(req.CheckOut))
	if err != nil {
		http.Error(w, "checkOut must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	stay, err := calendar.NewDateRange(checkIn, checkOut)
	if err != nil {
		http.Error(w, "checkOut must be after checkIn", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Advisory pre-check so the caller gets the conflict list. The exclusion
	// constraint makes the final call at commit time.
	availability, err := h.resolver.CheckAvailability(ctx, calendar.CheckQuery{
		TenantID:   id.TenantID,
		PropertyID: req.PropertyID,
		Range:      stay,
	})
	if err != nil {
		h.logger.Error("availability check failed", "err", err, "property_id", req.PropertyID)
		http.Error(w, "availability check failed", http.StatusInternalServerError)
		return
	}
	if !availability.Available {
		writeJSON(w, http.StatusConflict, conflictErrorResponse{
			Error:     "requested dates are not available",
			Conflicts: toAvailabilityResponse(availability).Conflicts,
		})
		return
	}

	input, err := h.buildFinancialInput(ctx, id.TenantID, &req, stay.Nights())
	if err != nil {
		h.logger.Error("rates lookup failed", "err", err, "tenant_id", id.TenantID)
		http.Error(w, "rates lookup failed", http.StatusInternalServerError)
		return
	}
	breakdown := financials.Calculate(input)

	booking := &model.Booking{
		TenantID:    id.TenantID,
		PropertyID:  req.PropertyID,
		CheckIn:     stay.Start,
		CheckOut:    stay.End,
		BookingType: bookingType,
		Status:      model.StatusConfirmed,
		GuestName:   req.GuestName,
		GuestEmail:  strings.TrimSpace(req.GuestEmail),
		GuestPhone:  strings.TrimSpace(req.GuestPhone),

		BasePrice:                input.BasePrice,
		Nights:                   input.Nights,
		SalesCommissionRate:      input.SalesCommissionRate,
		CollectionCommissionRate: input.CollectionCommissionRate,
		TaxRate:                  input.TaxRate,
		TaxApplied:               input.ApplyTax,

		TotalAmount:                breakdown.TotalAmount,
		SalesCommissionAmount:      breakdown.SalesCommissionAmount,
		CollectionCommissionAmount: breakdown.CollectionCommissionAmount,
		TaxAmount:                  breakdown.TaxAmount,
		NetAmount:                  breakdown.NetAmount,
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, id.TenantID, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	bookingID, err := h.repo.Create(ctx, tx, booking)
	if err != nil {
		if storage.IsConflict(err) {
			// Lost the race after the advisory check passed.
			writeJSON(w, http.StatusConflict, conflictErrorResponse{
				Error: "requested dates are not available",
			})
			return
		}
		h.logger.Error("booking insert failed", "err", err)
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
		return
	}
	booking.ID = bookingID

	// Commercial revenue lands in the books the moment the booking exists.
	if m := incomeMovementFor(booking); m != nil {
		if _, err := h.movements.InsertTx(ctx, tx, m); err != nil {
			h.logger.Error("income movement insert failed", "err", err)
			http.Error(w, "failed to record booking income", http.StatusInternalServerError)
			return
		}
	}

	evt, err := outbox.BookingCreated(booking)
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(toBookingResponse(booking))
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, id.TenantID, idempotencyKey, bookingID, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if storage.IsConflict(err) {
			writeJSON(w, http.StatusConflict, conflictErrorResponse{
				Error: "requested dates are not available",
			})
			return
		}
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

type rescheduleRequest struct {
	BookingID string `json:"bookingId"`
	CheckIn   string `json:"checkIn"`
	CheckOut  string `json:"checkOut"`
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "bookingId required", http.StatusBadRequest)
		return
	}

	checkIn, err := calendar.ParseDate(strings.TrimSpace(req.CheckIn))
	if err != nil {
		http.Error(w, "checkIn must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	checkOut, err := calendar.ParseDate(strings.TrimSpace(req.CheckOut))
	if err != nil {
		http.Error(w, "checkOut must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	stay, err := calendar.NewDateRange(checkIn, checkOut)
	if err != nil {
		http.Error(w, "checkOut must be after checkIn", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booking, err := h.repo.GetBookingForUpdate(ctx, tx, id.TenantID, req.BookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}
	if booking.Status == model.StatusCancelled {
		http.Error(w, "cancelled bookings cannot be rescheduled", http.StatusConflict)
		return
	}

	// The booking being moved must not count against itself.
	availability, err := h.resolver.CheckAvailability(ctx, calendar.CheckQuery{
		TenantID:         id.TenantID,
		PropertyID:       booking.PropertyID,
		Range:            stay,
		ExcludeBookingID: booking.ID,
	})
	if err != nil {
		h.logger.Error("availability check failed", "err", err, "booking_id", booking.ID)
		http.Error(w, "availability check failed", http.StatusInternalServerError)
		return
	}
	if !availability.Available {
		writeJSON(w, http.StatusConflict, conflictErrorResponse{
			Error:     "requested dates are not available",
			Conflicts: toAvailabilityResponse(availability).Conflicts,
		})
		return
	}

	// Recompute money from the rates frozen on the booking row; only the
	// night count changes.
	breakdown := financials.Calculate(financials.Input{
		BasePrice:                booking.BasePrice,
		Nights:                   stay.Nights(),
		SalesCommissionRate:      booking.SalesCommissionRate,
		CollectionCommissionRate: booking.CollectionCommissionRate,
		TaxRate:                  booking.TaxRate,
		ApplyTax:                 booking.TaxApplied,
	})

	booking.CheckIn = stay.Start
	booking.CheckOut = stay.End
	booking.Nights = stay.Nights()
	booking.TotalAmount = breakdown.TotalAmount
	booking.SalesCommissionAmount = breakdown.SalesCommissionAmount
	booking.CollectionCommissionAmount = breakdown.CollectionCommissionAmount
	booking.TaxAmount = breakdown.TaxAmount
	booking.NetAmount = breakdown.NetAmount

	if err := h.repo.Reschedule(ctx, tx, &booking); err != nil {
		if storage.IsConflict(err) {
			writeJSON(w, http.StatusConflict, conflictErrorResponse{
				Error: "requested dates are not available",
			})
			return
		}
		http.Error(w, "failed to reschedule booking", http.StatusInternalServerError)
		return
	}

	// The booking's income row must track the new dates and amounts, or the
	// reports rollup drifts from the bookings table.
	if err := h.syncBookingIncome(ctx, tx, &booking); err != nil {
		h.logger.Error("income movement sync failed", "err", err, "booking_id", booking.ID)
		http.Error(w, "failed to update booking income", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.BookingRescheduled(&booking)
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		if storage.IsConflict(err) {
			writeJSON(w, http.StatusConflict, conflictErrorResponse{
				Error: "requested dates are not available",
			})
			return
		}
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(&booking))
}

type cancelBookingRequest struct {
	BookingID string `json:"bookingId"`
	Reason    string `json:"reason"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.BookingID == "" {
		http.Error(w, "bookingId required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booking, err := h.repo.GetBookingForUpdate(ctx, tx, id.TenantID, req.BookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	// Cancelling twice is a no-op, not an error.
	if booking.Status == model.StatusCancelled && booking.CancelledAt != nil {
		writeJSON(w, http.StatusOK, toBookingResponse(&booking))
		return
	}

	cancelledAt, err := h.repo.Cancel(ctx, tx, id.TenantID, booking.ID, req.Reason)
	if err != nil {
		http.Error(w, "failed to cancel booking", http.StatusInternalServerError)
		return
	}
	booking.Status = model.StatusCancelled
	booking.CancelledAt = &cancelledAt
	booking.CancelReason = req.Reason

	// A cancelled booking earns nothing; take its income off the books.
	if err := h.syncBookingIncome(ctx, tx, &booking); err != nil {
		h.logger.Error("income movement sync failed", "err", err, "booking_id", booking.ID)
		http.Error(w, "failed to update booking income", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.BookingCancelled(&booking)
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(&booking))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	propertyID := strings.TrimSpace(r.URL.Query().Get("propertyId"))
	if propertyID == "" {
		http.Error(w, "propertyId required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	bookings, err := h.repo.ListByProperty(r.Context(), id.TenantID, propertyID, limit)
	if err != nil {
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	items := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		items = append(items, toBookingResponse(&bookings[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) buildFinancialInput(ctx context.Context, tenantID string, req *createBookingRequest, nights int) (financials.Input, error) {
	input := financials.Input{
		BasePrice: req.BasePrice,
		Nights:    nights,
	}

	needDefaults := req.SalesCommissionRate == nil || req.CollectionCommissionRate == nil ||
		req.TaxRate == nil || req.ApplyTax == nil
	var defaults model.TenantRates
	if needDefaults {
		var err error
		defaults, err = h.rates.DefaultRates(ctx, tenantID)
		if err != nil {
			return financials.Input{}, err
		}
	}

	input.SalesCommissionRate = defaults.SalesCommissionRate
	if req.SalesCommissionRate != nil {
		input.SalesCommissionRate = *req.SalesCommissionRate
	}
	input.CollectionCommissionRate = defaults.CollectionCommissionRate
	if req.CollectionCommissionRate != nil {
		input.CollectionCommissionRate = *req.CollectionCommissionRate
	}
	input.TaxRate = defaults.TaxRate
	if req.TaxRate != nil {
		input.TaxRate = *req.TaxRate
	}
	input.ApplyTax = defaults.ApplyTax
	if req.ApplyTax != nil {
		input.ApplyTax = *req.ApplyTax
	}
	return input, nil
}

func rateInRange(v float64) bool {
	return v >= 0 && v <= 100
}

// incomeMovementFor derives the ledger entry a booking should carry: one
// income row for its net amount, dated at check-in. Closed periods, cancelled
// bookings and zero-net bookings carry none.
func incomeMovementFor(b *model.Booking) *model.Movement {
	if b.BookingType != model.BookingTypeCommercial || b.Status == model.StatusCancelled || b.NetAmount <= 0 {
		return nil
	}
	return &model.Movement{
		TenantID:    b.TenantID,
		PropertyID:  b.PropertyID,
		BookingID:   b.ID,
		Kind:        model.MovementIncome,
		Concept:     "booking " + b.ID,
		Amount:      b.NetAmount,
		TotalAmount: b.NetAmount,
		OccurredOn:  b.CheckIn,
	}
}

// syncBookingIncome reverses the booking's recorded income and re-inserts
// whatever the booking should carry now, inside the caller's transaction.
func (h *BookingHandler) syncBookingIncome(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	if err := h.movements.DeleteBookingIncomeTx(ctx, tx, b.TenantID, b.ID); err != nil {
		return err
	}
	if m := incomeMovementFor(b); m != nil {
		if _, err := h.movements.InsertTx(ctx, tx, m); err != nil {
			return err
		}
	}
	return nil
}

func toBookingResponse(b *model.Booking) bookingResponse {
	resp := bookingResponse{
		BookingID:   b.ID,
		PropertyID:  b.PropertyID,
		CheckIn:     b.CheckIn.Format("2006-01-02"),
		CheckOut:    b.CheckOut.Format("2006-01-02"),
		BookingType: string(b.BookingType),
		Status:      string(b.Status),
		GuestName:   b.GuestName,
		Nights:      b.Nights,

		TotalAmount:                b.TotalAmount,
		SalesCommissionAmount:      b.SalesCommissionAmount,
		CollectionCommissionAmount: b.CollectionCommissionAmount,
		TaxAmount:                  b.TaxAmount,
		NetAmount:                  b.NetAmount,
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	if !b.CreatedAt.IsZero() {
		resp.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
