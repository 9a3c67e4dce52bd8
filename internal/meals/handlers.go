package meals

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/userctx"
)

// Handler handles HTTP requests for meal slots.
type Handler struct {
	service *Service
}

// NewHandler creates a new meals handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGetDay handles GET /v1/meals/day?baby_id=&date=YYYY-MM-DD
func (h *Handler) HandleGetDay(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	babyID, err := uuid.Parse(r.URL.Query().Get("baby_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "baby_id must be a valid UUID")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}

	meals, err := h.service.GetDay(r.Context(), ownerUserID, babyID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Baby not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get meals")
		return
	}

	writeJSON(w, http.StatusOK, DayResponse{Date: date, Meals: meals})
}

// HandleCreate handles POST /v1/meals
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req CreateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	meal, created, err := h.service.Create(r.Context(), ownerUserID, req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Baby not found")
		case strings.HasPrefix(err.Error(), "validation failed: "):
			writeError(w, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), "validation failed: "))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create meal")
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, meal)
}

// HandleRemoveFood handles DELETE /v1/meals/{id}/foods/{foodId}
func (h *Handler) HandleRemoveFood(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	mealID := r.PathValue("id")
	foodID := r.PathValue("foodId")
	if mealID == "" || foodID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "meal id and food id are required")
		return
	}

	if err := h.service.RemoveFood(r.Context(), ownerUserID, mealID, foodID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Meal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to remove food")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
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
