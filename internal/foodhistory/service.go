package foodhistory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

// ErrNotFound means the baby or food does not exist.
var ErrNotFound = errors.New("not found")

// Service answers "how did this food go before" questions from persisted
// meal logs.
type Service struct {
	history storage.FoodHistoryStorage
	catalog storage.FoodCatalogStorage
	babies  storage.BabiesStorage
}

// NewService creates a new food history service.
func NewService(history storage.FoodHistoryStorage, catalog storage.FoodCatalogStorage, babies storage.BabiesStorage) *Service {
	return &Service{history: history, catalog: catalog, babies: babies}
}

// ForFood returns stats and past servings of one food for a baby.
func (s *Service) ForFood(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string, limit int) (FoodHistoryResponse, error) {
	if _, found, err := s.babies.GetBaby(ctx, ownerUserID, babyID); err != nil {
		return FoodHistoryResponse{}, err
	} else if !found {
		return FoodHistoryResponse{}, ErrNotFound
	}
	if _, found, err := s.catalog.GetFood(ctx, foodID); err != nil {
		return FoodHistoryResponse{}, err
	} else if !found {
		return FoodHistoryResponse{}, ErrNotFound
	}

	today := time.Now().UTC().Format("2006-01-02")
	stats, err := s.history.GetFoodStats(ctx, ownerUserID, babyID, foodID, today)
	if err != nil {
		return FoodHistoryResponse{}, err
	}

	entries, err := s.history.ListFoodHistory(ctx, ownerUserID, babyID, foodID, limit)
	if err != nil {
		return FoodHistoryResponse{}, err
	}

	resp := FoodHistoryResponse{
		FoodID:            foodID,
		FirstIntroduced:   stats.FirstIntroduced,
		TotalServings:     stats.TotalServings,
		LastServedDaysAgo: stats.LastServedDaysAgo,
		Entries:           make([]HistoryEntryDTO, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = toEntryDTO(e)
	}
	return resp, nil
}
