package reports

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/blob"
	"github.com/tinybites/tinybites/internal/storage"
)

// Errors
var (
	ErrInvalidFormat    = fmt.Errorf("invalid format")
	ErrInvalidDate      = fmt.Errorf("invalid date format")
	ErrInvalidDateRange = fmt.Errorf("from date must be before to date")
	ErrRangeTooLarge    = fmt.Errorf("date range too large")
	ErrBabyNotFound     = fmt.Errorf("baby not found")
	ErrReportNotFound   = fmt.Errorf("report not found")
)

// Service handles reports business logic
type Service struct {
	reportsStorage  storage.ReportsStorage
	generator       *Generator
	blobStore       blob.Store
	maxRangeDays    int
	presignTTL      int
	localMode       bool   // true if no S3 configured
	publicBaseURL   string // S3 public base URL (if prefer_public_url mode)
	preferPublicURL bool   // if true, use public URLs instead of presigned
}

// NewService creates a new reports service
func NewService(
	reportsStorage storage.ReportsStorage,
	meals storage.MealsStorage,
	babies storage.BabiesStorage,
	blobStore blob.Store,
	maxRangeDays int,
	presignTTL int,
	publicBaseURL string,
	preferPublicURL bool,
) *Service {
	return &Service{
		reportsStorage:  reportsStorage,
		generator:       NewGenerator(meals, babies),
		blobStore:       blobStore,
		maxRangeDays:    maxRangeDays,
		presignTTL:      presignTTL,
		localMode:       blobStore == nil,
		publicBaseURL:   publicBaseURL,
		preferPublicURL: preferPublicURL,
	}
}

// CreateReport generates a report over a date range and stores it
func (s *Service) CreateReport(ctx context.Context, ownerUserID string, req CreateReportRequest) (*storage.ReportMeta, error) {
	if req.Format != FormatPDF && req.Format != FormatCSV {
		return nil, ErrInvalidFormat
	}

	fromDate, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, ErrInvalidDate
	}
	toDate, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if fromDate.After(toDate) {
		return nil, ErrInvalidDateRange
	}

	daysDiff := int(toDate.Sub(fromDate).Hours() / 24)
	if daysDiff > s.maxRangeDays {
		return nil, ErrRangeTooLarge
	}

	data, err := s.generator.GenerateReport(ctx, ownerUserID, req)
	if err != nil {
		if err == ErrBabyNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	report := &storage.ReportMeta{
		OwnerUserID: ownerUserID,
		BabyID:      req.BabyID,
		Format:      req.Format,
		FromDate:    req.From,
		ToDate:      req.To,
		SizeBytes:   int64(len(data)),
		Status:      StatusReady,
	}

	if s.localMode {
		report.Data = data
	} else {
		objectKey := fmt.Sprintf("reports/%s/%s_%s_%s.%s",
			req.BabyID.String(),
			req.From,
			req.To,
			uuid.New().String(),
			req.Format,
		)

		if _, err := s.blobStore.PutObject(ctx, objectKey, data, contentTypeFor(req.Format)); err != nil {
			return nil, fmt.Errorf("failed to upload report: %w", err)
		}
		report.ObjectKey = &objectKey
	}

	if err := s.reportsStorage.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report metadata: %w", err)
	}

	return report, nil
}

// GetReport retrieves a report by ID
func (s *Service) GetReport(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.ReportMeta, error) {
	meta, found, err := s.reportsStorage.GetReport(ctx, ownerUserID, id)
	if err != nil {
		return storage.ReportMeta{}, fmt.Errorf("failed to get report: %w", err)
	}
	if !found {
		return storage.ReportMeta{}, ErrReportNotFound
	}
	return meta, nil
}

// ListReports lists the account's reports
func (s *Service) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ReportMeta, error) {
	metaList, err := s.reportsStorage.ListReports(ctx, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return metaList, nil
}

// DeleteReport deletes a report and its stored object
func (s *Service) DeleteReport(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	meta, found, err := s.reportsStorage.GetReport(ctx, ownerUserID, id)
	if err != nil {
		return fmt.Errorf("failed to get report: %w", err)
	}
	if !found {
		return ErrReportNotFound
	}

	if !s.localMode && meta.ObjectKey != nil {
		if err := s.blobStore.DeleteObject(ctx, *meta.ObjectKey); err != nil {
			// Metadata deletion is more important than the orphaned object.
			log.Printf("WARN reports: failed to delete object %s: %v", *meta.ObjectKey, err)
		}
	}

	if err := s.reportsStorage.DeleteReport(ctx, ownerUserID, id); err != nil {
		return fmt.Errorf("failed to delete report metadata: %w", err)
	}

	return nil
}

// DownloadURL generates a download URL for a report
func (s *Service) DownloadURL(ctx context.Context, ownerUserID string, id uuid.UUID, baseURL string) (string, error) {
	meta, found, err := s.reportsStorage.GetReport(ctx, ownerUserID, id)
	if err != nil {
		return "", fmt.Errorf("failed to get report: %w", err)
	}
	if !found {
		return "", ErrReportNotFound
	}

	if s.localMode {
		return fmt.Sprintf("%s/v1/reports/%s/download", strings.TrimSuffix(baseURL, "/"), id.String()), nil
	}

	if meta.ObjectKey == nil {
		return "", fmt.Errorf("object key is missing")
	}

	if s.preferPublicURL && s.publicBaseURL != "" {
		return strings.TrimSuffix(s.publicBaseURL, "/") + "/" + *meta.ObjectKey, nil
	}

	presignedURL, err := s.blobStore.PresignGet(ctx, *meta.ObjectKey, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedURL, nil
}

// Data retrieves the raw report bytes (local mode download)
func (s *Service) Data(ctx context.Context, ownerUserID string, id uuid.UUID) ([]byte, string, error) {
	meta, found, err := s.reportsStorage.GetReport(ctx, ownerUserID, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get report: %w", err)
	}
	if !found {
		return nil, "", ErrReportNotFound
	}

	contentType := contentTypeFor(meta.Format)

	if s.localMode {
		return meta.Data, contentType, nil
	}

	if meta.ObjectKey == nil {
		return nil, "", fmt.Errorf("object key is missing")
	}

	data, err := s.blobStore.GetObject(ctx, *meta.ObjectKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch report object: %w", err)
	}
	return data, contentType, nil
}

// LocalMode reports whether data is served directly instead of via object storage
func (s *Service) LocalMode() bool {
	return s.localMode
}

func contentTypeFor(format string) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "application/pdf"
}
