package foodhistory

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/userctx"
)

// Handler handles HTTP requests for per-food history.
type Handler struct {
	service *Service
}

// NewHandler creates a new food history handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGet handles GET /v1/history/foods/{foodId}?baby_id=&limit=
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	foodID := r.PathValue("foodId")
	if foodID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "food id is required")
		return
	}

	babyID, err := uuid.Parse(r.URL.Query().Get("baby_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "baby_id must be a valid UUID")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit <= 0 {
			limit = 20
		}
	}

	resp, err := h.service.ForFood(r.Context(), ownerUserID, babyID, foodID, limit)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Baby or food not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get food history")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
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
