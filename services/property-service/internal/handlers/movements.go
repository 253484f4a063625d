package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmarkovic/hostwise/services/property-service/internal/calendar"
	"github.com/dmarkovic/hostwise/services/property-service/internal/financials"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
	"github.com/dmarkovic/hostwise/services/property-service/internal/tenant"
)

type MovementHandler struct {
	repo   *storage.MovementRepository
	logger *slog.Logger
}

func NewMovementHandler(repo *storage.MovementRepository, logger *slog.Logger) *MovementHandler {
	return &MovementHandler{repo: repo, logger: logger}
}

type createMovementRequest struct {
	PropertyID    string  `json:"propertyId"`
	BookingID     string  `json:"bookingId"`
	Kind          string  `json:"kind"`
	Concept       string  `json:"concept"`
	Amount        float64 `json:"amount"`
	TaxPercentage float64 `json:"taxPercentage"`
	OccurredOn    string  `json:"occurredOn"`
}

type movementItem struct {
	MovementID    string  `json:"movementId"`
	PropertyID    string  `json:"propertyId"`
	BookingID     string  `json:"bookingId,omitempty"`
	Kind          string  `json:"kind"`
	Concept       string  `json:"concept"`
	Amount        float64 `json:"amount"`
	TaxPercentage float64 `json:"taxPercentage"`
	TotalAmount   float64 `json:"totalAmount"`
	OccurredOn    string  `json:"occurredOn"`
	CreatedAt     string  `json:"createdAt"`
}

func (h *MovementHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.PropertyID = strings.TrimSpace(req.PropertyID)
	req.Concept = strings.TrimSpace(req.Concept)
	if req.PropertyID == "" || req.Concept == "" {
		http.Error(w, "propertyId and concept required", http.StatusBadRequest)
		return
	}

	kind := model.MovementKind(strings.TrimSpace(req.Kind))
	if kind != model.MovementIncome && kind != model.MovementExpense {
		http.Error(w, "kind must be income or expense", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}
	if req.TaxPercentage < 0 || req.TaxPercentage > 100 {
		http.Error(w, "taxPercentage must be between 0 and 100", http.StatusBadRequest)
		return
	}

	occurredOn := time.Now().UTC()
	if raw := strings.TrimSpace(req.OccurredOn); raw != "" {
		parsed, err := calendar.ParseDate(raw)
		if err != nil {
			http.Error(w, "occurredOn must be a YYYY-MM-DD date", http.StatusBadRequest)
			return
		}
		occurredOn = parsed
	}

	movement := &model.Movement{
		TenantID:      id.TenantID,
		PropertyID:    req.PropertyID,
		BookingID:     strings.TrimSpace(req.BookingID),
		Kind:          kind,
		Concept:       req.Concept,
		Amount:        financials.Round2(req.Amount),
		TaxPercentage: req.TaxPercentage,
		TotalAmount:   financials.ExpenseItemTotal(req.Amount, req.TaxPercentage),
		OccurredOn:    occurredOn,
	}

	movementID, err := h.repo.Insert(r.Context(), movement)
	if err != nil {
		h.logger.Error("movement insert failed", "err", err, "property_id", req.PropertyID)
		http.Error(w, "failed to create movement", http.StatusInternalServerError)
		return
	}
	movement.ID = movementID
	movement.CreatedAt = time.Now().UTC()

	writeJSON(w, http.StatusCreated, toMovementItem(movement))
}

func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
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

	from, to, ok := parseWindow(w, q.Get("from"), q.Get("to"))
	if !ok {
		return
	}

	limit := 100
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	movements, err := h.repo.ListByProperty(r.Context(), id.TenantID, propertyID, from, to, limit)
	if err != nil {
		http.Error(w, "failed to list movements", http.StatusInternalServerError)
		return
	}

	items := make([]movementItem, 0, len(movements))
	for i := range movements {
		items = append(items, toMovementItem(&movements[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

// parseWindow resolves the optional from/to query params to a half-open
// window, defaulting to the current calendar year.
func parseWindow(w http.ResponseWriter, fromRaw, toRaw string) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	if raw := strings.TrimSpace(fromRaw); raw != "" {
		parsed, err := calendar.ParseDate(raw)
		if err != nil {
			http.Error(w, "from must be a YYYY-MM-DD date", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := strings.TrimSpace(toRaw); raw != "" {
		parsed, err := calendar.ParseDate(raw)
		if err != nil {
			http.Error(w, "to must be a YYYY-MM-DD date", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func toMovementItem(m *model.Movement) movementItem {
	return movementItem{
		MovementID:    m.ID,
		PropertyID:    m.PropertyID,
		BookingID:     m.BookingID,
		Kind:          string(m.Kind),
		Concept:       m.Concept,
		Amount:        m.Amount,
		TaxPercentage: m.TaxPercentage,
		TotalAmount:   m.TotalAmount,
		OccurredOn:    m.OccurredOn.Format("2006-01-02"),
		CreatedAt:     m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
