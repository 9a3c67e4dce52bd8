package selection

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tinybites/tinybites/internal/userctx"
)

// Handler handles HTTP requests for food selection drafts.
type Handler struct {
	service *Service
}

// NewHandler creates a new food selection handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleOpen handles POST /v1/selection/open
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	dto, err := h.service.Open(r.Context(), ownerUserID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to open selection")
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleToggle handles POST /v1/selection/toggle
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}
	if req.FoodID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "food_id is required")
		return
	}

	dto, err := h.service.Toggle(r.Context(), ownerUserID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to toggle food")
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleAcknowledge handles POST /v1/selection/ack-allergen
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req DraftRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	dto, err := h.service.Acknowledge(r.Context(), ownerUserID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to acknowledge allergen")
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleConfirm handles POST /v1/selection/confirm
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req DraftRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	resp, err := h.service.Confirm(r.Context(), ownerUserID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to confirm selection")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Not found")
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
