package foods

import (
	"context"
	"errors"

	"github.com/tinybites/tinybites/internal/storage"
)

// ErrNotFound means the food id is not in the catalog.
var ErrNotFound = errors.New("food not found")

const maxSearchLimit = 100

// Service handles food catalog lookups.
type Service struct {
	catalog storage.FoodCatalogStorage
}

// NewService creates a new food catalog service.
func NewService(catalog storage.FoodCatalogStorage) *Service {
	return &Service{catalog: catalog}
}

// Search returns a page of catalog foods matching the query, category and
// baby age filters.
func (s *Service) Search(ctx context.Context, q storage.FoodQuery) ([]FoodDTO, bool, error) {
	if q.Limit <= 0 || q.Limit > maxSearchLimit {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	found, hasMore, err := s.catalog.SearchFoods(ctx, q)
	if err != nil {
		return nil, false, err
	}

	dtos := make([]FoodDTO, len(found))
	for i, f := range found {
		dtos[i] = toDTO(f)
	}
	return dtos, hasMore, nil
}

// Get returns one catalog food by id.
func (s *Service) Get(ctx context.Context, id string) (FoodDTO, error) {
	f, found, err := s.catalog.GetFood(ctx, id)
	if err != nil {
		return FoodDTO{}, err
	}
	if !found {
		return FoodDTO{}, ErrNotFound
	}
	return toDTO(f), nil
}

// Categories returns the distinct categories available for the given age.
func (s *Service) Categories(ctx context.Context, babyAgeMonths int) ([]string, error) {
	return s.catalog.GetCategories(ctx, babyAgeMonths)
}
