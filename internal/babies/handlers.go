package babies

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/userctx"
)

// Handler handles HTTP requests for baby profiles.
type Handler struct {
	service *Service
}

// NewHandler creates a new babies handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleList handles GET /v1/babies
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	babies, err := h.service.List(r.Context(), ownerUserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list babies")
		return
	}

	writeJSON(w, http.StatusOK, ListBabiesResponse{Babies: babies})
}

// HandleCreate handles POST /v1/babies
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req CreateBabyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	baby, err := h.service.Create(r.Context(), ownerUserID, req)
	if err != nil {
		if strings.HasPrefix(err.Error(), "validation failed: ") {
			writeError(w, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), "validation failed: "))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create baby")
		return
	}

	writeJSON(w, http.StatusCreated, baby)
}

// HandleGet handles GET /v1/babies/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "baby id must be a valid UUID")
		return
	}

	baby, err := h.service.Get(r.Context(), ownerUserID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Baby not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get baby")
		return
	}

	writeJSON(w, http.StatusOK, baby)
}

// HandleListAllergens handles GET /v1/babies/{id}/allergens
func (h *Handler) HandleListAllergens(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "baby id must be a valid UUID")
		return
	}

	allergens, err := h.service.ListAllergens(r.Context(), ownerUserID, id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Baby not found")
		return
	}

	writeJSON(w, http.StatusOK, AllergensResponse{Allergens: allergens})
}

// HandleAddAllergen handles POST /v1/babies/{id}/allergens
func (h *Handler) HandleAddAllergen(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "baby id must be a valid UUID")
		return
	}

	var req AddAllergenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	if err := h.service.AddAllergen(r.Context(), ownerUserID, id, req.Allergen); err != nil {
		switch {
		case strings.HasPrefix(err.Error(), "validation failed: "):
			writeError(w, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), "validation failed: "))
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Baby not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to add allergen")
		}
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
