package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/tinybites/tinybites/internal/storage"
)

type catalogStorage struct {
	mu    sync.RWMutex
	foods []storage.Food
}

// seedFoods is the built-in catalog for local development. IDs are stable
// slugs so meals survive a restart of the memory backend within one process.
var seedFoods = []storage.Food{
	{ID: "banana", Name: "Banana", Emoji: "🍌", Category: "fruit", MinAgeMonths: 6},
	{ID: "avocado", Name: "Avocado", Emoji: "🥑", Category: "fruit", MinAgeMonths: 6},
	{ID: "oatmeal", Name: "Oatmeal", Emoji: "🥣", Category: "grain", MinAgeMonths: 6},
	{ID: "sweet-potato", Name: "Sweet Potato", Emoji: "🍠", Category: "vegetable", MinAgeMonths: 6},
	{ID: "carrot", Name: "Carrot", Emoji: "🥕", Category: "vegetable", MinAgeMonths: 6},
	{ID: "apple", Name: "Apple", Emoji: "🍎", Category: "fruit", MinAgeMonths: 6},
	{ID: "pear", Name: "Pear", Emoji: "🍐", Category: "fruit", MinAgeMonths: 6},
	{ID: "broccoli", Name: "Broccoli", Emoji: "🥦", Category: "vegetable", MinAgeMonths: 7},
	{ID: "egg", Name: "Scrambled Egg", Emoji: "🥚", Category: "protein", IsAllergen: true, AllergenType: "egg", MinAgeMonths: 6},
	{ID: "peanut-butter", Name: "Peanut Butter", Emoji: "🥜", Category: "protein", IsAllergen: true, AllergenType: "peanut", MinAgeMonths: 6},
	{ID: "yogurt", Name: "Plain Yogurt", Emoji: "🥛", Category: "dairy", IsAllergen: true, AllergenType: "dairy", MinAgeMonths: 6},
	{ID: "cheese", Name: "Cheese", Emoji: "🧀", Category: "dairy", IsAllergen: true, AllergenType: "dairy", MinAgeMonths: 8},
	{ID: "salmon", Name: "Salmon", Emoji: "🐟", Category: "protein", IsAllergen: true, AllergenType: "fish", MinAgeMonths: 7},
	{ID: "wheat-toast", Name: "Wheat Toast", Emoji: "🍞", Category: "grain", IsAllergen: true, AllergenType: "wheat", MinAgeMonths: 8},
	{ID: "strawberry", Name: "Strawberry", Emoji: "🍓", Category: "fruit", MinAgeMonths: 8},
	{ID: "chicken", Name: "Shredded Chicken", Emoji: "🍗", Category: "protein", MinAgeMonths: 7},
	{ID: "lentils", Name: "Lentils", Emoji: "🍲", Category: "protein", MinAgeMonths: 7},
	{ID: "rice", Name: "Rice", Emoji: "🍚", Category: "grain", MinAgeMonths: 6},
	{ID: "pasta", Name: "Pasta", Emoji: "🍝", Category: "grain", IsAllergen: true, AllergenType: "wheat", MinAgeMonths: 9},
	{ID: "blueberry", Name: "Blueberries", Emoji: "🫐", Category: "fruit", MinAgeMonths: 8},
	{ID: "peas", Name: "Peas", Emoji: "🫛", Category: "vegetable", MinAgeMonths: 6},
	{ID: "tofu", Name: "Tofu", Emoji: "🍱", Category: "protein", IsAllergen: true, AllergenType: "soy", MinAgeMonths: 7},
}

func newCatalogStorage() *catalogStorage {
	return &catalogStorage{foods: seedFoods}
}

func (s *catalogStorage) SearchFoods(ctx context.Context, q storage.FoodQuery) ([]storage.Food, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(q.Query))
	matched := []storage.Food{}
	for _, f := range s.foods {
		if q.Category != "" && f.Category != q.Category {
			continue
		}
		if q.BabyAgeMonths > 0 && f.MinAgeMonths > q.BabyAgeMonths {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(f.Name), query) {
			continue
		}
		matched = append(matched, f)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []storage.Food{}, false, nil
	}
	end := offset + limit
	hasMore := end < len(matched)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], hasMore, nil
}

func (s *catalogStorage) GetFood(ctx context.Context, id string) (storage.Food, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.foods {
		if f.ID == id {
			return f, true, nil
		}
	}
	return storage.Food{}, false, nil
}

func (s *catalogStorage) GetCategories(ctx context.Context, babyAgeMonths int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var categories []string
	for _, f := range s.foods {
		if babyAgeMonths > 0 && f.MinAgeMonths > babyAgeMonths {
			continue
		}
		if !seen[f.Category] {
			seen[f.Category] = true
			categories = append(categories, f.Category)
		}
	}
	return categories, nil
}
