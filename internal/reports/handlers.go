package reports

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
	"github.com/tinybites/tinybites/internal/userctx"
)

// Handler handles HTTP requests for reports
type Handler struct {
	service *Service
}

// NewHandler creates a new reports handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleCreate handles POST /v1/reports
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	report, err := h.service.CreateReport(r.Context(), ownerUserID, req)
	if err != nil {
		switch err {
		case ErrInvalidFormat:
			writeError(w, http.StatusBadRequest, "invalid_format", "Format must be 'pdf' or 'csv'")
		case ErrInvalidDate:
			writeError(w, http.StatusBadRequest, "invalid_date", "Invalid date format, use YYYY-MM-DD")
		case ErrInvalidDateRange:
			writeError(w, http.StatusBadRequest, "invalid_range", "From date must be before to date")
		case ErrRangeTooLarge:
			writeError(w, http.StatusBadRequest, "range_too_large", fmt.Sprintf("Date range exceeds maximum of %d days", h.service.maxRangeDays))
		case ErrBabyNotFound:
			writeError(w, http.StatusNotFound, "not_found", "Baby not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create report")
		}
		return
	}

	downloadURL, err := h.service.DownloadURL(r.Context(), ownerUserID, report.ID, getBaseURL(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toReportDTO(*report, downloadURL))
}

// HandleList handles GET /v1/reports
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	metaList, err := h.service.ListReports(r.Context(), ownerUserID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list reports")
		return
	}

	baseURL := getBaseURL(r)
	dtos := make([]ReportDTO, len(metaList))
	for i, meta := range metaList {
		downloadURL, _ := h.service.DownloadURL(r.Context(), ownerUserID, meta.ID, baseURL)
		dtos[i] = toReportDTO(meta, downloadURL)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ReportsResponse{Reports: dtos})
}

// HandleDownload handles GET /v1/reports/{id}/download
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	reportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid report ID")
		return
	}

	report, err := h.service.GetReport(r.Context(), ownerUserID, reportID)
	if err != nil {
		if err == ErrReportNotFound {
			writeError(w, http.StatusNotFound, "not_found", "Report not found")
		} else {
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get report")
		}
		return
	}

	if h.service.LocalMode() {
		data, contentType, err := h.service.Data(r.Context(), ownerUserID, reportID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to read report data")
			return
		}

		filename := fmt.Sprintf("feeding_report_%s_%s.%s", report.FromDate, report.ToDate, report.Format)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
		return
	}

	presignedURL, err := h.service.DownloadURL(r.Context(), ownerUserID, reportID, getBaseURL(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
		return
	}
	http.Redirect(w, r, presignedURL, http.StatusFound)
}

// HandleDelete handles DELETE /v1/reports/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}

	reportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid report ID")
		return
	}

	if err := h.service.DeleteReport(r.Context(), ownerUserID, reportID); err != nil {
		if err == ErrReportNotFound {
			writeError(w, http.StatusNotFound, "not_found", "Report not found")
		} else {
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete report")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toReportDTO(meta storage.ReportMeta, downloadURL string) ReportDTO {
	return ReportDTO{
		ID:          meta.ID,
		BabyID:      meta.BabyID,
		Format:      meta.Format,
		From:        meta.FromDate,
		To:          meta.ToDate,
		DownloadURL: downloadURL,
		SizeBytes:   meta.SizeBytes,
		Status:      meta.Status,
		CreatedAt:   meta.CreatedAt,
	}
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

func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
