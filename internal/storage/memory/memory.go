package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

// ErrNotFound aliases the shared sentinel so callers can match either way.
var ErrNotFound = storage.ErrNotFound

// MemoryStorage is the in-memory implementation of all storage interfaces.
// Used for local development and tests; a demo baby exists out of the box.
type MemoryStorage struct {
	mu           sync.RWMutex
	babies       map[uuid.UUID]storage.Baby
	allergens    map[uuid.UUID][]string // babyID -> known allergens
	acknowledged map[uuid.UUID][]string // babyID -> acknowledged food ids

	catalog      *catalogStorage
	meals        *mealsStorage
	achievements *achievementsStorage
	reports      *reportsStorage
}

// New creates a MemoryStorage with a seeded food catalog and a demo baby.
func New() *MemoryStorage {
	babyID := uuid.New()
	now := time.Now().UTC()
	demo := storage.Baby{
		ID:          babyID,
		OwnerUserID: "default",
		Name:        "Demo Baby",
		BirthDate:   now.AddDate(0, -8, 0).Format("2006-01-02"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return &MemoryStorage{
		babies:       map[uuid.UUID]storage.Baby{babyID: demo},
		allergens:    make(map[uuid.UUID][]string),
		acknowledged: make(map[uuid.UUID][]string),
		catalog:      newCatalogStorage(),
		meals:        newMealsStorage(),
		achievements: newAchievementsStorage(),
		reports:      newReportsStorage(),
	}
}

func (m *MemoryStorage) ListBabies(ctx context.Context, ownerUserID string) ([]storage.Baby, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	babies := make([]storage.Baby, 0, len(m.babies))
	for _, b := range m.babies {
		if b.OwnerUserID == ownerUserID {
			babies = append(babies, b)
		}
	}
	return babies, nil
}

func (m *MemoryStorage) GetBaby(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.Baby, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.babies[id]
	if !ok || b.OwnerUserID != ownerUserID {
		return storage.Baby{}, false, nil
	}
	return b, true, nil
}

func (m *MemoryStorage) CreateBaby(ctx context.Context, baby *storage.Baby) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if baby.ID == uuid.Nil {
		baby.ID = uuid.New()
	}
	baby.CreatedAt = time.Now().UTC()
	baby.UpdatedAt = baby.CreatedAt
	m.babies[baby.ID] = *baby
	return nil
}

func (m *MemoryStorage) ListAllergens(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if b, ok := m.babies[babyID]; !ok || b.OwnerUserID != ownerUserID {
		return nil, ErrNotFound
	}
	return append([]string(nil), m.allergens[babyID]...), nil
}

func (m *MemoryStorage) AddAllergen(ctx context.Context, ownerUserID string, babyID uuid.UUID, allergen string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.babies[babyID]; !ok || b.OwnerUserID != ownerUserID {
		return ErrNotFound
	}

	allergen = strings.ToLower(strings.TrimSpace(allergen))
	if allergen == "" {
		return nil
	}
	for _, a := range m.allergens[babyID] {
		if a == allergen {
			return nil
		}
	}
	m.allergens[babyID] = append(m.allergens[babyID], allergen)
	return nil
}

func (m *MemoryStorage) ListAcknowledgedFoods(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if b, ok := m.babies[babyID]; !ok || b.OwnerUserID != ownerUserID {
		return nil, ErrNotFound
	}
	return append([]string(nil), m.acknowledged[babyID]...), nil
}

func (m *MemoryStorage) AcknowledgeFood(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.babies[babyID]; !ok || b.OwnerUserID != ownerUserID {
		return ErrNotFound
	}
	for _, id := range m.acknowledged[babyID] {
		if id == foodID {
			return nil
		}
	}
	m.acknowledged[babyID] = append(m.acknowledged[babyID], foodID)
	return nil
}

func (m *MemoryStorage) Close() error {
	// no-op for memory
	return nil
}

// GetCatalogStorage returns the food catalog storage.
func (m *MemoryStorage) GetCatalogStorage() storage.FoodCatalogStorage {
	return m.catalog
}

// GetMealsStorage returns the meals storage.
func (m *MemoryStorage) GetMealsStorage() storage.MealsStorage {
	return m.meals
}

// GetAchievementsStorage returns the achievements storage.
func (m *MemoryStorage) GetAchievementsStorage() storage.AchievementsStorage {
	return m.achievements
}

// GetFoodHistoryStorage returns the food history storage. History is derived
// from the same meal records the meals storage owns.
func (m *MemoryStorage) GetFoodHistoryStorage() storage.FoodHistoryStorage {
	return &foodHistoryStorage{meals: m.meals}
}

// GetReportsStorage returns the reports storage.
func (m *MemoryStorage) GetReportsStorage() storage.ReportsStorage {
	return m.reports
}
