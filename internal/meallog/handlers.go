package meallog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tinybites/tinybites/internal/userctx"
)

// Handler handles HTTP requests for meal logging sessions.
type Handler struct {
	service *Service
}

// NewHandler creates a new meal logging handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleOpen handles POST /v1/meals/{id}/log/open and GET /v1/meals/{id}/log.
// Opening an already-open session returns the live draft.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	mealID := r.PathValue("id")
	if mealID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "meal id is required")
		return
	}

	dto, err := h.service.Open(r.Context(), ownerUserID, mealID)
	if err != nil {
		writeServiceError(w, err, "Failed to open logging session")
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleUpdate handles POST /v1/meals/{id}/log/update
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req UpdateLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	dto, err := h.service.UpdateLog(ownerUserID, r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "Failed to update log")
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleRemove handles POST /v1/meals/{id}/log/remove
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.handleFoodRef(w, r, h.service.RemoveFood)
}

// HandleRestore handles POST /v1/meals/{id}/log/restore
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.handleFoodRef(w, r, h.service.RestoreFood)
}

func (h *Handler) handleFoodRef(w http.ResponseWriter, r *http.Request, op func(ownerUserID, mealID, foodID string) (SessionDTO, error)) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req FoodRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}
	if req.FoodID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "food_id is required")
		return
	}

	dto, err := op(ownerUserID, r.PathValue("id"), req.FoodID)
	if err != nil {
		writeServiceError(w, err, "Failed to update session")
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleAckAllergy handles POST /v1/meals/{id}/log/ack-allergy
func (h *Handler) HandleAckAllergy(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	dto, err := h.service.AcknowledgeAllergy(r.Context(), ownerUserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "Failed to acknowledge allergy")
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleSave handles POST /v1/meals/{id}/log/save
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	resp, err := h.service.Save(r.Context(), ownerUserID, r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "Failed to save meal log")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleSkip handles POST /v1/meals/{id}/log/skip
func (h *Handler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	if err := h.service.Skip(r.Context(), ownerUserID, r.PathValue("id")); err != nil {
		writeServiceError(w, err, "Failed to skip meal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Meal not found")
	case errors.Is(err, ErrSavePending):
		writeError(w, http.StatusConflict, "save_pending", "A save is already in progress")
	case strings.HasPrefix(err.Error(), "validation failed: "):
		writeError(w, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), "validation failed: "))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
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
