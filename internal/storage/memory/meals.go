package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

var displayOrder = map[string]int{"breakfast": 1, "lunch": 2, "dinner": 3, "snack": 4}

type mealsStorage struct {
	mu    sync.RWMutex
	meals map[string]*storage.Meal // key: meal id
	// index for natural-key lookups
	bySlot   map[string]string // key: "owner:baby:date:mealType" -> meal id
	seenKeys map[string]bool   // applied log/replace idempotency keys
}

func newMealsStorage() *mealsStorage {
	return &mealsStorage{
		meals:    make(map[string]*storage.Meal),
		bySlot:   make(map[string]string),
		seenKeys: make(map[string]bool),
	}
}

func slotKey(ownerUserID string, babyID uuid.UUID, date, mealType string) string {
	return fmt.Sprintf("%s:%s:%s:%s", ownerUserID, babyID, date, mealType)
}

func (s *mealsStorage) ListMealsForDay(ctx context.Context, ownerUserID string, babyID uuid.UUID, date string) ([]storage.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meals := []storage.Meal{}
	for _, mealType := range []string{"breakfast", "lunch", "dinner", "snack"} {
		if id, ok := s.bySlot[slotKey(ownerUserID, babyID, date, mealType)]; ok {
			if meal, ok := s.meals[id]; ok {
				meals = append(meals, copyMeal(meal))
			}
		}
	}
	return meals, nil
}

func (s *mealsStorage) GetMeal(ctx context.Context, ownerUserID string, mealID string) (storage.Meal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meal, ok := s.meals[mealID]
	if !ok || meal.OwnerUserID != ownerUserID {
		return storage.Meal{}, false, nil
	}
	return copyMeal(meal), true, nil
}

func (s *mealsStorage) CreateMeal(ctx context.Context, ownerUserID string, babyID uuid.UUID, date, mealType, idemKey string) (storage.Meal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey(ownerUserID, babyID, date, mealType)
	if existingID, ok := s.bySlot[key]; ok {
		if existing, ok := s.meals[existingID]; ok {
			return copyMeal(existing), false, nil
		}
	}

	now := time.Now().UTC()
	meal := &storage.Meal{
		ID:           uuid.New().String(),
		OwnerUserID:  ownerUserID,
		BabyID:       babyID,
		Date:         date,
		MealType:     mealType,
		PlannedFoods: []storage.FoodLog{},
		DisplayOrder: displayOrder[mealType],
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.meals[meal.ID] = meal
	s.bySlot[key] = meal.ID
	if idemKey != "" {
		s.seenKeys[idemKey] = true
	}
	return copyMeal(meal), true, nil
}

func (s *mealsStorage) ReplaceMealFoods(ctx context.Context, ownerUserID string, mealID string, foods []storage.Food, idemKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idemKey != "" && s.seenKeys[idemKey] {
		return storage.ErrIdempotentReplay
	}

	meal, ok := s.meals[mealID]
	if !ok || meal.OwnerUserID != ownerUserID {
		return ErrNotFound
	}

	// Keep log fields already recorded for foods that stay on the meal.
	prior := make(map[string]storage.FoodLog, len(meal.PlannedFoods))
	for _, pf := range meal.PlannedFoods {
		prior[pf.Food.ID] = pf
	}

	replaced := make([]storage.FoodLog, 0, len(foods))
	for _, f := range foods {
		if pf, ok := prior[f.ID]; ok {
			pf.Food = f
			replaced = append(replaced, pf)
			continue
		}
		replaced = append(replaced, storage.FoodLog{Food: f, Allergy: "none"})
	}

	meal.PlannedFoods = replaced
	meal.UpdatedAt = time.Now().UTC()
	if idemKey != "" {
		s.seenKeys[idemKey] = true
	}
	return nil
}

func (s *mealsStorage) LogMeal(ctx context.Context, ownerUserID string, mealID string, logs []storage.FoodLog, notes string, markComplete bool, idemKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idemKey != "" && s.seenKeys[idemKey] {
		return storage.ErrIdempotentReplay
	}

	meal, ok := s.meals[mealID]
	if !ok || meal.OwnerUserID != ownerUserID {
		return ErrNotFound
	}

	meal.PlannedFoods = append([]storage.FoodLog(nil), logs...)
	meal.Notes = notes
	if markComplete {
		meal.Completed = true
	}
	meal.UpdatedAt = time.Now().UTC()
	if idemKey != "" {
		s.seenKeys[idemKey] = true
	}
	return nil
}

func (s *mealsStorage) MarkMealSkipped(ctx context.Context, ownerUserID string, mealID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meal, ok := s.meals[mealID]
	if !ok || meal.OwnerUserID != ownerUserID {
		return ErrNotFound
	}
	meal.Skipped = true
	meal.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mealsStorage) RemoveFoodFromMeal(ctx context.Context, ownerUserID string, mealID string, foodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meal, ok := s.meals[mealID]
	if !ok || meal.OwnerUserID != ownerUserID {
		return ErrNotFound
	}

	kept := meal.PlannedFoods[:0]
	for _, pf := range meal.PlannedFoods {
		if pf.Food.ID != foodID {
			kept = append(kept, pf)
		}
	}
	meal.PlannedFoods = kept
	meal.UpdatedAt = time.Now().UTC()
	return nil
}

// listMealsForBaby returns every meal of one baby, unsorted. Used by the
// derived food-history storage; must not be called with the lock held.
func (s *mealsStorage) listMealsForBaby(ownerUserID string, babyID uuid.UUID) []storage.Meal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var meals []storage.Meal
	for _, meal := range s.meals {
		if meal.OwnerUserID == ownerUserID && meal.BabyID == babyID {
			meals = append(meals, copyMeal(meal))
		}
	}
	return meals
}

func copyMeal(m *storage.Meal) storage.Meal {
	out := *m
	out.PlannedFoods = append([]storage.FoodLog(nil), m.PlannedFoods...)
	return out
}
