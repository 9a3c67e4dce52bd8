package foods

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tinybites/tinybites/internal/storage"
)

// Handler handles HTTP requests for the food catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a new food catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleSearch handles GET /v1/foods?q=&category=&baby_age_months=&limit=&offset=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := storage.FoodQuery{
		Query:         r.URL.Query().Get("q"),
		Category:      r.URL.Query().Get("category"),
		BabyAgeMonths: parseIntQuery(r, "baby_age_months", 0),
		Limit:         parseIntQuery(r, "limit", 50),
		Offset:        parseIntQuery(r, "offset", 0),
	}

	foods, hasMore, err := h.service.Search(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to search foods")
		return
	}

	response := SearchResponse{
		Foods:   foods,
		HasMore: hasMore,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// HandleGet handles GET /v1/foods/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "food id is required")
		return
	}

	food, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Food not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get food")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(food)
}

// HandleCategories handles GET /v1/foods/categories?baby_age_months=
func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context(), parseIntQuery(r, "baby_age_months", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get categories")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(CategoriesResponse{Categories: categories})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}

	var val int
	if _, err := fmt.Sscanf(valStr, "%d", &val); err != nil {
		return defaultValue
	}

	return val
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
