package selection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

var (
	// ErrNotFound means the baby or food does not exist.
	ErrNotFound = errors.New("not found")
)

// draft is one in-progress food selection for a meal slot. The selected set
// starts from the meal's existing foods when the slot already exists. All
// reads and mutations happen under mu; the exclusive-ownership model allows
// one editor per slot but requests may still arrive concurrently.
type draft struct {
	mu sync.Mutex

	ownerUserID string
	babyID      uuid.UUID
	date        string
	mealType    string

	mealID   string // empty until the meal exists
	selected []storage.Food
	gate     *storage.Food // pending allergen gate

	allergens []string
	acked     map[string]bool
}

// Service owns the selection drafts, one per (baby, date, meal type) slot.
type Service struct {
	meals   storage.MealsStorage
	catalog storage.FoodCatalogStorage
	babies  storage.BabiesStorage
	tracker storage.AchievementsStorage

	mu     sync.Mutex
	drafts map[string]*draft
}

// NewService creates a new food selection service.
func NewService(meals storage.MealsStorage, catalog storage.FoodCatalogStorage, babies storage.BabiesStorage, tracker storage.AchievementsStorage) *Service {
	return &Service{
		meals:   meals,
		catalog: catalog,
		babies:  babies,
		tracker: tracker,
		drafts:  make(map[string]*draft),
	}
}

func draftKey(ownerUserID string, babyID uuid.UUID, date, mealType string) string {
	return fmt.Sprintf("%s:%s:%s:%s", ownerUserID, babyID, date, mealType)
}

// Open starts a selection draft for the slot, prefilled from the existing
// meal if one is already there. Reopening returns the live draft.
func (s *Service) Open(ctx context.Context, ownerUserID string, req OpenRequest) (DraftDTO, error) {
	if err := req.Validate(); err != nil {
		return DraftDTO{}, fmt.Errorf("validation failed: %w", err)
	}
	babyID := uuid.MustParse(req.BabyID)

	key := draftKey(ownerUserID, babyID, req.Date, req.MealType)
	s.mu.Lock()
	if d, ok := s.drafts[key]; ok {
		s.mu.Unlock()
		d.mu.Lock()
		defer d.mu.Unlock()
		return toDraftDTO(d), nil
	}
	s.mu.Unlock()

	allergens, err := s.babies.ListAllergens(ctx, ownerUserID, babyID)
	if err != nil {
		return DraftDTO{}, ErrNotFound
	}
	ackedList, err := s.babies.ListAcknowledgedFoods(ctx, ownerUserID, babyID)
	if err != nil {
		return DraftDTO{}, err
	}
	acked := make(map[string]bool, len(ackedList))
	for _, id := range ackedList {
		acked[id] = true
	}

	d := &draft{
		ownerUserID: ownerUserID,
		babyID:      babyID,
		date:        req.Date,
		mealType:    req.MealType,
		allergens:   allergens,
		acked:       acked,
	}

	meals, err := s.meals.ListMealsForDay(ctx, ownerUserID, babyID, req.Date)
	if err != nil {
		return DraftDTO{}, err
	}
	for _, m := range meals {
		if m.MealType != req.MealType {
			continue
		}
		d.mealID = m.ID
		for _, pf := range m.PlannedFoods {
			d.selected = append(d.selected, pf.Food)
		}
	}

	s.mu.Lock()
	// A concurrent Open may have raced us; the first draft wins.
	if existing, ok := s.drafts[key]; ok {
		d = existing
	} else {
		s.drafts[key] = d
	}
	s.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	return toDraftDTO(d), nil
}

// Toggle adds or removes a food from the draft. Adding a food whose allergen
// matches a known baby allergen and has not been acknowledged raises a
// blocking gate instead.
func (s *Service) Toggle(ctx context.Context, ownerUserID string, req ToggleRequest) (DraftDTO, error) {
	d, err := s.draft(ownerUserID, req.BabyID, req.Date, req.MealType)
	if err != nil {
		return DraftDTO{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if i := selectedIndex(d.selected, req.FoodID); i >= 0 {
		d.selected = append(d.selected[:i], d.selected[i+1:]...)
		return toDraftDTO(d), nil
	}

	food, found, err := s.catalog.GetFood(ctx, req.FoodID)
	if err != nil {
		return DraftDTO{}, err
	}
	if !found {
		return DraftDTO{}, ErrNotFound
	}

	if needsGate(food, d.allergens) && !d.acked[food.ID] {
		d.gate = &food
		return toDraftDTO(d), nil
	}

	d.selected = append(d.selected, food)
	return toDraftDTO(d), nil
}

// Acknowledge clears the pending gate: the food id is persisted as
// acknowledged for this baby so future sessions skip the gate, and the food
// joins the draft.
func (s *Service) Acknowledge(ctx context.Context, ownerUserID string, req DraftRefRequest) (DraftDTO, error) {
	d, err := s.draft(ownerUserID, req.BabyID, req.Date, req.MealType)
	if err != nil {
		return DraftDTO{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gate == nil {
		return DraftDTO{}, fmt.Errorf("validation failed: no pending allergen gate")
	}

	food := *d.gate
	if err := s.babies.AcknowledgeFood(ctx, ownerUserID, d.babyID, food.ID); err != nil {
		return DraftDTO{}, err
	}

	d.acked[food.ID] = true
	d.gate = nil
	if selectedIndex(d.selected, food.ID) < 0 {
		d.selected = append(d.selected, food)
	}
	return toDraftDTO(d), nil
}

// Confirm commits the draft: the meal is created idempotently on its natural
// key when missing, then its food list is replaced by the selection. An empty
// draft is rejected before any store call.
func (s *Service) Confirm(ctx context.Context, ownerUserID string, req DraftRefRequest) (ConfirmResponse, error) {
	d, err := s.draft(ownerUserID, req.BabyID, req.Date, req.MealType)
	if err != nil {
		return ConfirmResponse{}, err
	}

	d.mu.Lock()

	if len(d.selected) == 0 {
		d.mu.Unlock()
		return ConfirmResponse{}, fmt.Errorf("validation failed: selection is empty")
	}

	created := false
	if d.mealID == "" {
		idemKey := fmt.Sprintf("create_meal_%s_%s_%s_%s", ownerUserID, d.babyID, d.date, d.mealType)
		meal, wasCreated, err := s.meals.CreateMeal(ctx, ownerUserID, d.babyID, d.date, d.mealType, idemKey)
		if err != nil {
			d.mu.Unlock()
			return ConfirmResponse{}, err
		}
		d.mealID = meal.ID
		created = wasCreated
	}

	idemKey := fmt.Sprintf("plan_foods_%s_%s_%s_%s_%d", ownerUserID, d.babyID, d.date, d.mealType, time.Now().UnixNano())
	if err := s.meals.ReplaceMealFoods(ctx, ownerUserID, d.mealID, d.selected, idemKey); err != nil && !errors.Is(err, storage.ErrIdempotentReplay) {
		d.mu.Unlock()
		return ConfirmResponse{}, err
	}

	// Best effort: a tracking failure never blocks the commit.
	if _, err := s.tracker.RecordFoodEvents(ctx, ownerUserID, d.babyID, d.selected, "planned", time.Now().UTC()); err != nil {
		log.Printf("WARN selection: achievement tracking failed: %v", err)
	}

	resp := ConfirmResponse{MealID: d.mealID, Created: created}
	d.mu.Unlock()

	s.mu.Lock()
	delete(s.drafts, draftKey(ownerUserID, d.babyID, d.date, d.mealType))
	s.mu.Unlock()

	return resp, nil
}

func (s *Service) draft(ownerUserID, babyID, date, mealType string) (*draft, error) {
	id, err := uuid.Parse(babyID)
	if err != nil {
		return nil, fmt.Errorf("validation failed: baby_id must be a valid UUID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[draftKey(ownerUserID, id, date, mealType)]
	if !ok {
		return nil, fmt.Errorf("validation failed: no open selection draft for this meal")
	}
	return d, nil
}

// needsGate reports whether the food matches one of the baby's known
// allergens, by declared allergen type or by name.
func needsGate(food storage.Food, allergens []string) bool {
	if !food.IsAllergen {
		return false
	}
	name := strings.ToLower(food.Name)
	for _, a := range allergens {
		a = strings.ToLower(a)
		if strings.EqualFold(food.AllergenType, a) || strings.Contains(name, a) {
			return true
		}
	}
	return false
}
