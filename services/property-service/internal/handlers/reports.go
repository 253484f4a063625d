package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dmarkovic/hostwise/services/property-service/internal/financials"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
	"github.com/dmarkovic/hostwise/services/property-service/internal/tenant"
)

type ReportHandler struct {
	movements *storage.MovementRepository
	logger    *slog.Logger
}

func NewReportHandler(movements *storage.MovementRepository, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{movements: movements, logger: logger}
}

type propertySummaryItem struct {
	PropertyID   string  `json:"propertyId"`
	IncomeTotal  float64 `json:"incomeTotal"`
	ExpenseTotal float64 `json:"expenseTotal"`
	NetTotal     float64 `json:"netTotal"`
	Movements    int     `json:"movements"`
}

type summaryResponse struct {
	From       string                `json:"from"`
	To         string                `json:"to"`
	Properties []propertySummaryItem `json:"properties"`
	Totals     propertySummaryItem   `json:"totals"`
}

// Summary rolls movements up per property over the requested window.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
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
	from, to, ok := parseWindow(w, q.Get("from"), q.Get("to"))
	if !ok {
		return
	}

	summaries, err := h.movements.SummaryByProperty(r.Context(), id.TenantID, from, to)
	if err != nil {
		h.logger.Error("summary query failed", "err", err, "tenant_id", id.TenantID)
		http.Error(w, "failed to build summary", http.StatusInternalServerError)
		return
	}

	resp := summaryResponse{
		From:       from.Format("2006-01-02"),
		To:         to.Format("2006-01-02"),
		Properties: make([]propertySummaryItem, 0, len(summaries)),
	}
	for _, s := range summaries {
		item := propertySummaryItem{
			PropertyID:   s.PropertyID,
			IncomeTotal:  financials.Round2(s.IncomeTotal),
			ExpenseTotal: financials.Round2(s.ExpenseTotal),
			NetTotal:     financials.Round2(s.NetTotal),
			Movements:    s.Movements,
		}
		resp.Properties = append(resp.Properties, item)
		resp.Totals.IncomeTotal += item.IncomeTotal
		resp.Totals.ExpenseTotal += item.ExpenseTotal
		resp.Totals.Movements += item.Movements
	}
	resp.Totals.IncomeTotal = financials.Round2(resp.Totals.IncomeTotal)
	resp.Totals.ExpenseTotal = financials.Round2(resp.Totals.ExpenseTotal)
	resp.Totals.NetTotal = financials.Round2(resp.Totals.IncomeTotal - resp.Totals.ExpenseTotal)

	writeJSON(w, http.StatusOK, resp)
}
