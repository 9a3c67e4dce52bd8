package achievements

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/userctx"
)

// Handler handles HTTP requests for achievements.
type Handler struct {
	service *Service
}

// NewHandler creates a new achievements handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleSummary handles GET /v1/achievements?baby_id=
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
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

	summary, err := h.service.Summary(r.Context(), ownerUserID, babyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get achievements")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
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
