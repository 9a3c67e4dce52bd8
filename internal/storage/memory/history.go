package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

// foodHistoryStorage derives history from the meals the baby already has.
// It keeps no state of its own.
type foodHistoryStorage struct {
	meals *mealsStorage
}

func (s *foodHistoryStorage) GetFoodStats(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string, asOf string) (storage.FoodStats, error) {
	servings := s.loggedServings(ownerUserID, babyID, foodID)

	stats := storage.FoodStats{LastServedDaysAgo: -1}
	if len(servings) == 0 {
		return stats, nil
	}

	first := servings[len(servings)-1].Date
	last := servings[0].Date
	stats.FirstIntroduced = first
	stats.TotalServings = len(servings)

	asOfDay, err := time.Parse("2006-01-02", asOf)
	if err != nil {
		asOfDay = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if lastDay, err := time.Parse("2006-01-02", last); err == nil {
		days := int(asOfDay.Sub(lastDay).Hours() / 24)
		if days < 0 {
			days = 0
		}
		stats.LastServedDaysAgo = days
	}
	return stats, nil
}

func (s *foodHistoryStorage) ListFoodHistory(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string, limit int) ([]storage.FoodHistoryEntry, error) {
	servings := s.loggedServings(ownerUserID, babyID, foodID)
	if limit > 0 && len(servings) > limit {
		servings = servings[:limit]
	}
	return servings, nil
}

// loggedServings collects every logged serving of the food, newest first.
func (s *foodHistoryStorage) loggedServings(ownerUserID string, babyID uuid.UUID, foodID string) []storage.FoodHistoryEntry {
	entries := []storage.FoodHistoryEntry{}
	for _, meal := range s.meals.listMealsForBaby(ownerUserID, babyID) {
		for _, pf := range meal.PlannedFoods {
			if pf.Food.ID != foodID || !pf.Logged {
				continue
			}
			entries = append(entries, storage.FoodHistoryEntry{
				Date:     meal.Date,
				MealType: meal.MealType,
				Reaction: pf.Reaction,
				Amount:   pf.Amount,
				Allergy:  pf.Allergy,
				Notes:    meal.Notes,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return displayOrder[entries[i].MealType] > displayOrder[entries[j].MealType]
	})
	return entries
}
