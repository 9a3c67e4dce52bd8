package meallog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
	"github.com/tinybites/tinybites/internal/userctx"
)

type loggedCall struct {
	mealID       string
	logs         []storage.FoodLog
	notes        string
	markComplete bool
	idemKey      string
}

type mockMealsRepo struct {
	meals       map[string]storage.Meal
	logCalls    []loggedCall
	skipped     []string
	logMealFunc func(ctx context.Context, ownerUserID, mealID string, logs []storage.FoodLog, notes string, markComplete bool, idemKey string) error
}

func newMockMealsRepo(meals ...storage.Meal) *mockMealsRepo {
	m := &mockMealsRepo{meals: make(map[string]storage.Meal)}
	for _, meal := range meals {
		m.meals[meal.ID] = meal
	}
	return m
}

func (m *mockMealsRepo) ListMealsForDay(ctx context.Context, ownerUserID string, babyID uuid.UUID, date string) ([]storage.Meal, error) {
	return nil, nil
}

func (m *mockMealsRepo) GetMeal(ctx context.Context, ownerUserID string, mealID string) (storage.Meal, bool, error) {
	meal, ok := m.meals[mealID]
	if !ok || meal.OwnerUserID != ownerUserID {
		return storage.Meal{}, false, nil
	}
	return meal, true, nil
}

func (m *mockMealsRepo) CreateMeal(ctx context.Context, ownerUserID string, babyID uuid.UUID, date, mealType, idemKey string) (storage.Meal, bool, error) {
	return storage.Meal{}, false, fmt.Errorf("not implemented")
}

func (m *mockMealsRepo) ReplaceMealFoods(ctx context.Context, ownerUserID string, mealID string, foods []storage.Food, idemKey string) error {
	return nil
}

func (m *mockMealsRepo) LogMeal(ctx context.Context, ownerUserID string, mealID string, logs []storage.FoodLog, notes string, markComplete bool, idemKey string) error {
	if m.logMealFunc != nil {
		return m.logMealFunc(ctx, ownerUserID, mealID, logs, notes, markComplete, idemKey)
	}
	m.logCalls = append(m.logCalls, loggedCall{
		mealID:       mealID,
		logs:         append([]storage.FoodLog(nil), logs...),
		notes:        notes,
		markComplete: markComplete,
		idemKey:      idemKey,
	})
	meal := m.meals[mealID]
	meal.PlannedFoods = logs
	meal.Notes = notes
	if markComplete {
		meal.Completed = true
	}
	m.meals[mealID] = meal
	return nil
}

func (m *mockMealsRepo) MarkMealSkipped(ctx context.Context, ownerUserID string, mealID string) error {
	meal, ok := m.meals[mealID]
	if !ok {
		return fmt.Errorf("not found")
	}
	meal.Skipped = true
	m.meals[mealID] = meal
	m.skipped = append(m.skipped, mealID)
	return nil
}

func (m *mockMealsRepo) RemoveFoodFromMeal(ctx context.Context, ownerUserID string, mealID string, foodID string) error {
	return nil
}

type mockBabiesRepo struct {
	allergenCalls []string
}

func (m *mockBabiesRepo) ListBabies(ctx context.Context, ownerUserID string) ([]storage.Baby, error) {
	return nil, nil
}

func (m *mockBabiesRepo) GetBaby(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.Baby, bool, error) {
	return storage.Baby{}, false, nil
}

func (m *mockBabiesRepo) CreateBaby(ctx context.Context, baby *storage.Baby) error { return nil }

func (m *mockBabiesRepo) ListAllergens(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error) {
	return nil, nil
}

func (m *mockBabiesRepo) AddAllergen(ctx context.Context, ownerUserID string, babyID uuid.UUID, allergen string) error {
	m.allergenCalls = append(m.allergenCalls, allergen)
	return nil
}

func (m *mockBabiesRepo) ListAcknowledgedFoods(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error) {
	return nil, nil
}

func (m *mockBabiesRepo) AcknowledgeFood(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string) error {
	return nil
}

func (m *mockBabiesRepo) Close() error { return nil }

type trackedEvent struct {
	foods  []storage.Food
	source string
}

type mockAchievementsRepo struct {
	events []trackedEvent
}

func (m *mockAchievementsRepo) RecordFoodEvents(ctx context.Context, ownerUserID string, babyID uuid.UUID, foods []storage.Food, source string, at time.Time) (int, error) {
	m.events = append(m.events, trackedEvent{foods: append([]storage.Food(nil), foods...), source: source})
	return len(foods), nil
}

func (m *mockAchievementsRepo) ListFoodEvents(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]storage.FoodEvent, error) {
	return nil, nil
}

func testMeal() storage.Meal {
	return storage.Meal{
		ID:          "meal1",
		OwnerUserID: "user1",
		BabyID:      uuid.New(),
		Date:        "2024-01-01",
		MealType:    "breakfast",
		PlannedFoods: []storage.FoodLog{
			{Food: storage.Food{ID: "banana", Name: "Banana"}, Allergy: "none"},
			{Food: storage.Food{ID: "oatmeal", Name: "Oatmeal"}, Allergy: "none"},
			{Food: storage.Food{ID: "egg", Name: "Scrambled Egg"}, Allergy: "none"},
		},
	}
}

func doRequest(t *testing.T, handler http.HandlerFunc, method, target, mealID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req = req.WithContext(userctx.WithUserID(req.Context(), "user1"))
	req.SetPathValue("id", mealID)

	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) SessionDTO {
	t.Helper()
	var dto SessionDTO
	if err := json.NewDecoder(w.Body).Decode(&dto); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	return dto
}

func TestHandleOpen_NotFound(t *testing.T) {
	service := NewService(newMockMealsRepo(), &mockBabiesRepo{}, &mockAchievementsRepo{})
	handler := NewHandler(service)

	w := doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/missing/log/open", "missing", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestLogSaveFlow_PartialThenComplete(t *testing.T) {
	repo := newMockMealsRepo(testMeal())
	achievements := &mockAchievementsRepo{}
	service := NewService(repo, &mockBabiesRepo{}, achievements)
	handler := NewHandler(service)

	w := doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("open failed: %d", w.Code)
	}
	if dto := decodeSession(t, w); dto.Status != "planned" {
		t.Fatalf("expected planned status on open, got %s", dto.Status)
	}

	// Log two of three foods.
	for _, foodID := range []string{"banana", "oatmeal"} {
		w = doRequest(t, handler.HandleUpdate, http.MethodPost, "/v1/meals/meal1/log/update", "meal1",
			UpdateLogRequest{FoodID: foodID, Reaction: strPtr("yum"), Amount: strPtr("most")})
		if w.Code != http.StatusOK {
			t.Fatalf("update %s failed: %d", foodID, w.Code)
		}
	}

	w = doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{MarkComplete: false})
	if w.Code != http.StatusOK {
		t.Fatalf("save failed: %d %s", w.Code, w.Body.String())
	}

	var saveResp SaveResponse
	if err := json.NewDecoder(w.Body).Decode(&saveResp); err != nil {
		t.Fatalf("failed to decode save response: %v", err)
	}
	if saveResp.Status != "partial" {
		t.Errorf("expected partial after logging 2 of 3, got %s", saveResp.Status)
	}

	if len(repo.logCalls) != 1 {
		t.Fatalf("expected 1 store call, got %d", len(repo.logCalls))
	}
	call := repo.logCalls[0]
	if len(call.logs) != 3 {
		t.Errorf("store should receive all 3 foods, got %d", len(call.logs))
	}
	logged := 0
	for _, l := range call.logs {
		if l.Logged {
			logged++
		}
	}
	if logged != 2 {
		t.Errorf("expected 2 logged entries at the store, got %d", logged)
	}
	if call.markComplete {
		t.Error("markComplete should be false on the first save")
	}

	if len(achievements.events) != 1 || achievements.events[0].source != "logged" {
		t.Fatalf("expected one 'logged' achievement event, got %+v", achievements.events)
	}
	if len(achievements.events[0].foods) != 2 {
		t.Errorf("achievements should only see logged foods, got %d", len(achievements.events[0].foods))
	}

	// Log the third and commit.
	w = doRequest(t, handler.HandleUpdate, http.MethodPost, "/v1/meals/meal1/log/update", "meal1",
		UpdateLogRequest{FoodID: "egg", Amount: strPtr("some")})
	if w.Code != http.StatusOK {
		t.Fatalf("update egg failed: %d", w.Code)
	}

	w = doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{MarkComplete: true})
	if w.Code != http.StatusOK {
		t.Fatalf("second save failed: %d", w.Code)
	}
	if err := json.NewDecoder(w.Body).Decode(&saveResp); err != nil {
		t.Fatalf("failed to decode save response: %v", err)
	}
	if saveResp.Status != "complete" || !saveResp.Completed {
		t.Errorf("expected complete/committed, got %+v", saveResp)
	}
	if !repo.logCalls[1].markComplete {
		t.Error("second save should pass markComplete=true")
	}
	if repo.logCalls[0].idemKey == repo.logCalls[1].idemKey {
		t.Error("each save attempt must carry a distinct idempotency key")
	}
}

func TestAllergyAlert_AckFlow(t *testing.T) {
	repo := newMockMealsRepo(testMeal())
	babies := &mockBabiesRepo{}
	service := NewService(repo, babies, &mockAchievementsRepo{})
	handler := NewHandler(service)

	doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)

	w := doRequest(t, handler.HandleUpdate, http.MethodPost, "/v1/meals/meal1/log/update", "meal1",
		UpdateLogRequest{FoodID: "egg", Allergy: strPtr("severe")})
	dto := decodeSession(t, w)
	if dto.Alert == nil {
		t.Fatal("expected a pending alert after a severe allergy patch")
	}
	if dto.Alert.FoodID != "egg" || dto.Alert.Severity != "severe" {
		t.Errorf("unexpected alert: %+v", dto.Alert)
	}

	w = doRequest(t, handler.HandleAckAllergy, http.MethodPost, "/v1/meals/meal1/log/ack-allergy", "meal1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ack failed: %d", w.Code)
	}
	dto = decodeSession(t, w)
	if dto.Alert != nil {
		t.Error("alert should be cleared after acknowledgment")
	}

	if len(babies.allergenCalls) != 1 || babies.allergenCalls[0] != "Scrambled Egg" {
		t.Errorf("expected exactly one allergen call with the food name, got %v", babies.allergenCalls)
	}

	// Acking again without a pending alert is a validation error.
	w = doRequest(t, handler.HandleAckAllergy, http.MethodPost, "/v1/meals/meal1/log/ack-allergy", "meal1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for ack without alert, got %d", w.Code)
	}
}

func TestSave_RejectWhilePending(t *testing.T) {
	repo := newMockMealsRepo(testMeal())
	release := make(chan struct{})
	started := make(chan struct{})
	repo.logMealFunc = func(ctx context.Context, ownerUserID, mealID string, logs []storage.FoodLog, notes string, markComplete bool, idemKey string) error {
		close(started)
		<-release
		return nil
	}

	service := NewService(repo, &mockBabiesRepo{}, &mockAchievementsRepo{})
	handler := NewHandler(service)

	doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{})
	}()

	<-started
	w := doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 while a save is pending, got %d", w.Code)
	}

	close(release)
	if first := <-done; first.Code != http.StatusOK {
		t.Errorf("the in-flight save should still succeed, got %d", first.Code)
	}
}

func TestSave_FailurePreservesSession(t *testing.T) {
	repo := newMockMealsRepo(testMeal())
	repo.logMealFunc = func(ctx context.Context, ownerUserID, mealID string, logs []storage.FoodLog, notes string, markComplete bool, idemKey string) error {
		return fmt.Errorf("store unavailable")
	}

	service := NewService(repo, &mockBabiesRepo{}, &mockAchievementsRepo{})
	handler := NewHandler(service)

	doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)
	doRequest(t, handler.HandleUpdate, http.MethodPost, "/v1/meals/meal1/log/update", "meal1",
		UpdateLogRequest{FoodID: "banana", Reaction: strPtr("yum")})

	w := doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d", w.Code)
	}

	// The draft must survive so the user can retry.
	w = doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)
	dto := decodeSession(t, w)
	for _, f := range dto.Foods {
		if f.FoodID == "banana" && (!f.Logged || f.Reaction != "yum") {
			t.Errorf("draft entry lost after failed save: %+v", f)
		}
	}

	// Retry succeeds once the store recovers.
	repo.logMealFunc = nil
	w = doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{})
	if w.Code != http.StatusOK {
		t.Errorf("retry after store recovery should succeed, got %d", w.Code)
	}
}

func TestSkip_TearsDownSession(t *testing.T) {
	repo := newMockMealsRepo(testMeal())
	service := NewService(repo, &mockBabiesRepo{}, &mockAchievementsRepo{})
	handler := NewHandler(service)

	doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)
	doRequest(t, handler.HandleUpdate, http.MethodPost, "/v1/meals/meal1/log/update", "meal1",
		UpdateLogRequest{FoodID: "banana", Reaction: strPtr("yum")})

	w := doRequest(t, handler.HandleSkip, http.MethodPost, "/v1/meals/meal1/log/skip", "meal1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("skip failed: %d", w.Code)
	}
	if len(repo.skipped) != 1 || repo.skipped[0] != "meal1" {
		t.Errorf("expected meal1 marked skipped, got %v", repo.skipped)
	}

	// Reopening loads a fresh session from the store, draft edits are gone.
	w = doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)
	dto := decodeSession(t, w)
	for _, f := range dto.Foods {
		if f.Logged {
			t.Errorf("draft edit survived skip: %+v", f)
		}
	}
}

func TestRemoveRestore_HTTP(t *testing.T) {
	repo := newMockMealsRepo(testMeal())
	service := NewService(repo, &mockBabiesRepo{}, &mockAchievementsRepo{})
	handler := NewHandler(service)

	doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)

	w := doRequest(t, handler.HandleRemove, http.MethodPost, "/v1/meals/meal1/log/remove", "meal1", FoodRefRequest{FoodID: "egg"})
	dto := decodeSession(t, w)
	for _, f := range dto.Foods {
		if f.FoodID == "egg" && !f.Removed {
			t.Error("egg should be marked removed")
		}
	}

	// Save persists only the active set.
	doRequest(t, handler.HandleUpdate, http.MethodPost, "/v1/meals/meal1/log/update", "meal1",
		UpdateLogRequest{FoodID: "banana", Amount: strPtr("all")})
	w = doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{})
	if w.Code != http.StatusOK {
		t.Fatalf("save failed: %d", w.Code)
	}
	if len(repo.logCalls) != 1 {
		t.Fatalf("expected 1 store call, got %d", len(repo.logCalls))
	}
	for _, l := range repo.logCalls[0].logs {
		if l.Food.ID == "egg" {
			t.Error("removed food must not reach the store")
		}
	}
}

func TestSave_NotesPatchSemantics(t *testing.T) {
	repo := newMockMealsRepo(testMeal())
	service := NewService(repo, &mockBabiesRepo{}, &mockAchievementsRepo{})
	handler := NewHandler(service)

	doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)

	w := doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1",
		SaveRequest{Notes: strPtr("loved the banana")})
	if w.Code != http.StatusOK {
		t.Fatalf("save failed: %d", w.Code)
	}
	if got := repo.logCalls[0].notes; got != "loved the banana" {
		t.Fatalf("expected notes to persist, got %q", got)
	}

	// Absent notes leave the draft value alone.
	w = doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{})
	if w.Code != http.StatusOK {
		t.Fatalf("second save failed: %d", w.Code)
	}
	if got := repo.logCalls[1].notes; got != "loved the banana" {
		t.Errorf("save without notes must not touch them, got %q", got)
	}

	// An explicit empty string clears them.
	w = doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1",
		SaveRequest{Notes: strPtr("")})
	if w.Code != http.StatusOK {
		t.Fatalf("third save failed: %d", w.Code)
	}
	if got := repo.logCalls[2].notes; got != "" {
		t.Errorf("empty notes should clear the draft, got %q", got)
	}
}

func TestSave_ReplayDoesNotDoubleTrack(t *testing.T) {
	repo := newMockMealsRepo(testMeal())
	repo.logMealFunc = func(ctx context.Context, ownerUserID, mealID string, logs []storage.FoodLog, notes string, markComplete bool, idemKey string) error {
		return storage.ErrIdempotentReplay
	}

	achievements := &mockAchievementsRepo{}
	service := NewService(repo, &mockBabiesRepo{}, achievements)
	handler := NewHandler(service)

	doRequest(t, handler.HandleOpen, http.MethodPost, "/v1/meals/meal1/log/open", "meal1", nil)
	doRequest(t, handler.HandleUpdate, http.MethodPost, "/v1/meals/meal1/log/update", "meal1",
		UpdateLogRequest{FoodID: "banana", Reaction: strPtr("yum")})

	w := doRequest(t, handler.HandleSave, http.MethodPost, "/v1/meals/meal1/log/save", "meal1", SaveRequest{})
	if w.Code != http.StatusOK {
		t.Fatalf("a deduplicated save is still a success, got %d", w.Code)
	}
	if len(achievements.events) != 0 {
		t.Errorf("the store deduplicated this write, tracking must not repeat: %+v", achievements.events)
	}
}
