package meals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

var (
	// ErrNotFound means the meal or baby does not exist in the owner's scope.
	ErrNotFound = errors.New("not found")
)

// Service handles meal slot business logic: the per-day view with derived
// statuses, idempotent slot creation and single-food removal.
type Service struct {
	meals  storage.MealsStorage
	babies storage.BabiesStorage
}

// NewService creates a new meals service.
func NewService(meals storage.MealsStorage, babies storage.BabiesStorage) *Service {
	return &Service{meals: meals, babies: babies}
}

// GetDay returns the baby's meals for a calendar day, breakfast first.
// Status is derived from the persisted food logs on every call.
func (s *Service) GetDay(ctx context.Context, ownerUserID string, babyID uuid.UUID, date string) ([]MealDTO, error) {
	if _, found, err := s.babies.GetBaby(ctx, ownerUserID, babyID); err != nil {
		return nil, err
	} else if !found {
		return nil, ErrNotFound
	}

	meals, err := s.meals.ListMealsForDay(ctx, ownerUserID, babyID, date)
	if err != nil {
		return nil, err
	}

	dtos := make([]MealDTO, len(meals))
	for i, m := range meals {
		dtos[i] = toMealDTO(m)
	}
	return dtos, nil
}

// Create makes the meal slot for (baby, date, mealType), or returns the
// existing one. The natural key keeps creation idempotent regardless of the
// supplied idempotency key.
func (s *Service) Create(ctx context.Context, ownerUserID string, req CreateMealRequest, idemKey string) (MealDTO, bool, error) {
	if err := req.Validate(); err != nil {
		return MealDTO{}, false, fmt.Errorf("validation failed: %w", err)
	}

	babyID := uuid.MustParse(req.BabyID)
	if _, found, err := s.babies.GetBaby(ctx, ownerUserID, babyID); err != nil {
		return MealDTO{}, false, err
	} else if !found {
		return MealDTO{}, false, ErrNotFound
	}

	if idemKey == "" {
		idemKey = fmt.Sprintf("create_meal_%s_%s_%s_%s", ownerUserID, babyID, req.Date, req.MealType)
	}

	meal, created, err := s.meals.CreateMeal(ctx, ownerUserID, babyID, req.Date, req.MealType, idemKey)
	if err != nil {
		return MealDTO{}, false, err
	}
	return toMealDTO(meal), created, nil
}

// RemoveFood removes one food from a persisted meal.
func (s *Service) RemoveFood(ctx context.Context, ownerUserID string, mealID, foodID string) error {
	err := s.meals.RemoveFoodFromMeal(ctx, ownerUserID, mealID, foodID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
