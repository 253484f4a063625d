package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
	"github.com/dmarkovic/hostwise/services/property-service/internal/tenant"
)

type GuideHandler struct {
	repo   *storage.GuideRepository
	logger *slog.Logger
}

func NewGuideHandler(repo *storage.GuideRepository, logger *slog.Logger) *GuideHandler {
	return &GuideHandler{repo: repo, logger: logger}
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type upsertGuideRequest struct {
	PropertyID string `json:"propertyId"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Published  bool   `json:"published"`
}

type guideItem struct {
	GuideID    string `json:"guideId"`
	PropertyID string `json:"propertyId"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Published  bool   `json:"published"`
	UpdatedAt  string `json:"updatedAt"`
}

// Upsert handles PUT (create or replace) and GET (list) on /api/guides.
func (h *GuideHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
	case http.MethodGet:
		h.list(w, r)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req upsertGuideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.PropertyID = strings.TrimSpace(req.PropertyID)
	req.Slug = strings.TrimSpace(req.Slug)
	req.Title = strings.TrimSpace(req.Title)
	if req.PropertyID == "" || req.Title == "" {
		http.Error(w, "propertyId and title required", http.StatusBadRequest)
		return
	}
	if !slugPattern.MatchString(req.Slug) {
		http.Error(w, "slug must be lowercase letters, digits, and hyphens", http.StatusBadRequest)
		return
	}

	guide := &model.Guide{
		TenantID:   id.TenantID,
		PropertyID: req.PropertyID,
		Slug:       req.Slug,
		Title:      req.Title,
		Body:       req.Body,
		Published:  req.Published,
	}
	guideID, err := h.repo.Upsert(r.Context(), guide)
	if err != nil {
		h.logger.Error("guide upsert failed", "err", err, "slug", req.Slug)
		http.Error(w, "failed to save guide", http.StatusInternalServerError)
		return
	}
	guide.ID = guideID
	guide.UpdatedAt = time.Now().UTC()

	writeJSON(w, http.StatusOK, toGuideItem(guide))
}

func (h *GuideHandler) list(w http.ResponseWriter, r *http.Request) {
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

	guides, err := h.repo.ListByProperty(r.Context(), id.TenantID, propertyID)
	if err != nil {
		http.Error(w, "failed to list guides", http.StatusInternalServerError)
		return
	}

	items := make([]guideItem, 0, len(guides))
	for i := range guides {
		items = append(items, toGuideItem(&guides[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

// View serves a published guide to guests. No auth; the tenant comes from
// the query string and unpublished guides 404.
func (h *GuideHandler) View(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	tenantID := strings.TrimSpace(q.Get("tenantId"))
	propertyID := strings.TrimSpace(q.Get("propertyId"))
	slug := strings.TrimSpace(q.Get("slug"))
	if tenantID == "" || propertyID == "" || slug == "" {
		http.Error(w, "tenantId, propertyId, and slug required", http.StatusBadRequest)
		return
	}

	guide, err := h.repo.GetPublished(r.Context(), tenantID, propertyID, slug)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "guide not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load guide", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toGuideItem(&guide))
}

func toGuideItem(g *model.Guide) guideItem {
	return guideItem{
		GuideID:    g.ID,
		PropertyID: g.PropertyID,
		Slug:       g.Slug,
		Title:      g.Title,
		Body:       g.Body,
		Published:  g.Published,
		UpdatedAt:  g.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
