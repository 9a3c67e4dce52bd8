package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
	"github.com/tinybites/tinybites/internal/storage/memory"
	"github.com/tinybites/tinybites/internal/userctx"
)

func setupEnv(t *testing.T) (*Handler, *memory.MemoryStorage, uuid.UUID) {
	t.Helper()
	store := memory.New()
	baby := &storage.Baby{OwnerUserID: "user1", Name: "Nora", BirthDate: "2026-01-05"}
	if err := store.CreateBaby(context.Background(), baby); err != nil {
		t.Fatalf("create baby failed: %v", err)
	}

	svc := NewService(store.GetReportsStorage(), store.GetMealsStorage(), store, nil, 90, 900, "", false)
	return NewHandler(svc), store, baby.ID
}

func seedLoggedMeal(t *testing.T, store *memory.MemoryStorage, babyID uuid.UUID, date string) {
	t.Helper()
	ctx := context.Background()
	meals := store.GetMealsStorage()
	catalog := store.GetCatalogStorage()

	banana, _, err := catalog.GetFood(ctx, "banana")
	if err != nil {
		t.Fatalf("get banana failed: %v", err)
	}
	egg, _, err := catalog.GetFood(ctx, "egg")
	if err != nil {
		t.Fatalf("get egg failed: %v", err)
	}

	meal, _, err := meals.CreateMeal(ctx, "user1", babyID, date, "breakfast", "create_"+date)
	if err != nil {
		t.Fatalf("create meal failed: %v", err)
	}
	logs := []storage.FoodLog{
		{Food: banana, Logged: true, Reaction: "yum", Amount: "all", Allergy: "none"},
		{Food: egg, Logged: true, Reaction: "meh", Amount: "some", Allergy: "mild"},
	}
	if err := meals.LogMeal(ctx, "user1", meal.ID, logs, "first egg", true, "log_"+date); err != nil {
		t.Fatalf("log meal failed: %v", err)
	}
}

func createReport(t *testing.T, handler *Handler, body CreateReportRequest) (*httptest.ResponseRecorder, ReportDTO) {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/v1/reports", bytes.NewReader(payload))
	req = req.WithContext(userctx.WithUserID(req.Context(), "user1"))
	w := httptest.NewRecorder()
	handler.HandleCreate(w, req)

	var dto ReportDTO
	if w.Code == http.StatusCreated {
		if err := json.NewDecoder(w.Body).Decode(&dto); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
	}
	return w, dto
}

func TestCreateAndDownloadCSV(t *testing.T) {
	handler, store, babyID := setupEnv(t)
	seedLoggedMeal(t, store, babyID, "2026-08-10")

	w, dto := createReport(t, handler, CreateReportRequest{
		BabyID: babyID, From: "2026-08-01", To: "2026-08-31", Format: FormatCSV,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if dto.Status != StatusReady || dto.SizeBytes == 0 {
		t.Errorf("expected ready report with data, got %+v", dto)
	}
	if !strings.Contains(dto.DownloadURL, "/v1/reports/"+dto.ID.String()+"/download") {
		t.Errorf("unexpected download URL: %s", dto.DownloadURL)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/reports/"+dto.ID.String()+"/download", nil)
	req.SetPathValue("id", dto.ID.String())
	req = req.WithContext(userctx.WithUserID(req.Context(), "user1"))
	dw := httptest.NewRecorder()
	handler.HandleDownload(dw, req)

	if dw.Code != http.StatusOK {
		t.Fatalf("expected 200 download, got %d", dw.Code)
	}
	if ct := dw.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %s", ct)
	}
	csvBody := dw.Body.String()
	if !strings.Contains(csvBody, "Banana") || !strings.Contains(csvBody, "mild") {
		t.Errorf("expected logged foods in CSV, got: %s", csvBody)
	}
	if !strings.HasPrefix(csvBody, "date,meal_type,status,food,logged") {
		t.Errorf("unexpected CSV header: %s", csvBody)
	}
}

func TestCreatePDF(t *testing.T) {
	handler, store, babyID := setupEnv(t)
	seedLoggedMeal(t, store, babyID, "2026-08-10")

	w, dto := createReport(t, handler, CreateReportRequest{
		BabyID: babyID, From: "2026-08-01", To: "2026-08-31", Format: FormatPDF,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if dto.SizeBytes == 0 {
		t.Error("expected non-empty PDF")
	}
}

func TestCreateReportValidation(t *testing.T) {
	handler, _, babyID := setupEnv(t)

	tests := []struct {
		name     string
		req      CreateReportRequest
		wantCode int
	}{
		{"bad format", CreateReportRequest{BabyID: babyID, From: "2026-08-01", To: "2026-08-31", Format: "xlsx"}, http.StatusBadRequest},
		{"bad date", CreateReportRequest{BabyID: babyID, From: "August 1st", To: "2026-08-31", Format: FormatCSV}, http.StatusBadRequest},
		{"inverted range", CreateReportRequest{BabyID: babyID, From: "2026-08-31", To: "2026-08-01", Format: FormatCSV}, http.StatusBadRequest},
		{"range too large", CreateReportRequest{BabyID: babyID, From: "2025-01-01", To: "2026-08-01", Format: FormatCSV}, http.StatusBadRequest},
		{"unknown baby", CreateReportRequest{BabyID: uuid.New(), From: "2026-08-01", To: "2026-08-31", Format: FormatCSV}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := createReport(t, handler, tt.req)
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestListAndDeleteReports(t *testing.T) {
	handler, store, babyID := setupEnv(t)
	seedLoggedMeal(t, store, babyID, "2026-08-10")

	_, first := createReport(t, handler, CreateReportRequest{
		BabyID: babyID, From: "2026-08-01", To: "2026-08-31", Format: FormatCSV,
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)
	req = req.WithContext(userctx.WithUserID(req.Context(), "user1"))
	w := httptest.NewRecorder()
	handler.HandleList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list ReportsResponse
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(list.Reports) != 1 || list.Reports[0].ID != first.ID {
		t.Fatalf("expected one report %s, got %+v", first.ID, list.Reports)
	}

	del := httptest.NewRequest(http.MethodDelete, "/v1/reports/"+first.ID.String(), nil)
	del.SetPathValue("id", first.ID.String())
	del = del.WithContext(userctx.WithUserID(del.Context(), "user1"))
	dw := httptest.NewRecorder()
	handler.HandleDelete(dw, del)
	if dw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", dw.Code)
	}

	// Deleted report is gone.
	dl := httptest.NewRequest(http.MethodGet, "/v1/reports/"+first.ID.String()+"/download", nil)
	dl.SetPathValue("id", first.ID.String())
	dl = dl.WithContext(userctx.WithUserID(dl.Context(), "user1"))
	dlw := httptest.NewRecorder()
	handler.HandleDownload(dlw, dl)
	if dlw.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", dlw.Code)
	}
}
