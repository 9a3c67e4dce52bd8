package foodhistory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
	"github.com/tinybites/tinybites/internal/storage/memory"
	"github.com/tinybites/tinybites/internal/userctx"
)

func setupHandler(t *testing.T) (*Handler, *memory.MemoryStorage, uuid.UUID) {
	t.Helper()
	store := memory.New()
	baby := &storage.Baby{OwnerUserID: "user1", Name: "Nora", BirthDate: "2026-01-05"}
	if err := store.CreateBaby(context.Background(), baby); err != nil {
		t.Fatalf("create baby failed: %v", err)
	}
	svc := NewService(store.GetFoodHistoryStorage(), store.GetCatalogStorage(), store)
	return NewHandler(svc), store, baby.ID
}

func logBanana(t *testing.T, store *memory.MemoryStorage, babyID uuid.UUID, date, reaction string) {
	t.Helper()
	ctx := context.Background()
	meals := store.GetMealsStorage()
	catalog := store.GetCatalogStorage()
	banana, found, err := catalog.GetFood(ctx, "banana")
	if err != nil || !found {
		t.Fatalf("banana missing from catalog: %v", err)
	}
	meal, _, err := meals.CreateMeal(ctx, "user1", babyID, date, "breakfast", "create_"+date)
	if err != nil {
		t.Fatalf("create meal failed: %v", err)
	}
	logs := []storage.FoodLog{{Food: banana, Logged: true, Reaction: reaction, Amount: "most", Allergy: "none"}}
	if err := meals.LogMeal(ctx, "user1", meal.ID, logs, "", true, "log_"+date); err != nil {
		t.Fatalf("log meal failed: %v", err)
	}
}

func getHistory(t *testing.T, handler *Handler, babyID uuid.UUID, foodID string) (*httptest.ResponseRecorder, FoodHistoryResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/history/foods/"+foodID+"?baby_id="+babyID.String(), nil)
	req.SetPathValue("foodId", foodID)
	req = req.WithContext(userctx.WithUserID(req.Context(), "user1"))
	w := httptest.NewRecorder()
	handler.HandleGet(w, req)

	var resp FoodHistoryResponse
	if w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
	}
	return w, resp
}

func TestHistory_StatsAndOrder(t *testing.T) {
	handler, store, babyID := setupHandler(t)

	day := func(daysAgo int) string {
		return time.Now().UTC().AddDate(0, 0, -daysAgo).Format("2006-01-02")
	}
	logBanana(t, store, babyID, day(3), "yum")
	logBanana(t, store, babyID, day(1), "meh")

	w, resp := getHistory(t, handler, babyID, "banana")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if resp.TotalServings != 2 {
		t.Errorf("expected 2 servings, got %d", resp.TotalServings)
	}
	if resp.FirstIntroduced != day(3) {
		t.Errorf("expected first introduced %s, got %s", day(3), resp.FirstIntroduced)
	}
	if resp.LastServedDaysAgo != 1 {
		t.Errorf("expected last served 1 day ago, got %d", resp.LastServedDaysAgo)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Entries[0].Date != day(1) || resp.Entries[0].Reaction != "meh" {
		t.Errorf("expected newest entry first, got %+v", resp.Entries[0])
	}
	if resp.Entries[1].Date != day(3) || resp.Entries[1].Reaction != "yum" {
		t.Errorf("expected oldest entry last, got %+v", resp.Entries[1])
	}
}

func TestHistory_NeverServed(t *testing.T) {
	handler, _, babyID := setupHandler(t)

	w, resp := getHistory(t, handler, babyID, "avocado")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp.TotalServings != 0 {
		t.Errorf("expected 0 servings, got %d", resp.TotalServings)
	}
	if resp.LastServedDaysAgo != -1 {
		t.Errorf("expected -1 for never served, got %d", resp.LastServedDaysAgo)
	}
	if resp.FirstIntroduced != "" {
		t.Errorf("expected empty first introduced, got %s", resp.FirstIntroduced)
	}
	if len(resp.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(resp.Entries))
	}
}

func TestHistory_UnknownFood(t *testing.T) {
	handler, _, babyID := setupHandler(t)

	w, _ := getHistory(t, handler, babyID, "dragonfruit")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown food, got %d", w.Code)
	}
}

func TestHistory_UnknownBaby(t *testing.T) {
	handler, _, _ := setupHandler(t)

	w, _ := getHistory(t, handler, uuid.New(), "banana")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown baby, got %d", w.Code)
	}
}
