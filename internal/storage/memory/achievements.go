package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

type achievementsStorage struct {
	mu     sync.RWMutex
	events map[string]*storage.FoodEvent // key: "owner:baby:food:source"
	owners map[string]string             // event key -> owner, for scoping
}

func newAchievementsStorage() *achievementsStorage {
	return &achievementsStorage{
		events: make(map[string]*storage.FoodEvent),
		owners: make(map[string]string),
	}
}

func eventKey(ownerUserID string, babyID uuid.UUID, foodID, source string) string {
	return fmt.Sprintf("%s:%s:%s:%s", ownerUserID, babyID, foodID, source)
}

func (s *achievementsStorage) RecordFoodEvents(ctx context.Context, ownerUserID string, babyID uuid.UUID, foods []storage.Food, source string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newCount := 0
	for _, f := range foods {
		key := eventKey(ownerUserID, babyID, f.ID, source)
		if ev, ok := s.events[key]; ok {
			ev.Count++
			if at.Before(ev.FirstAt) {
				ev.FirstAt = at
			}
			continue
		}
		s.events[key] = &storage.FoodEvent{
			BabyID:   babyID,
			FoodID:   f.ID,
			FoodName: f.Name,
			Source:   source,
			FirstAt:  at,
			Count:    1,
		}
		s.owners[key] = ownerUserID
		newCount++
	}
	return newCount, nil
}

func (s *achievementsStorage) ListFoodEvents(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]storage.FoodEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []storage.FoodEvent
	for key, ev := range s.events {
		if s.owners[key] != ownerUserID || ev.BabyID != babyID {
			continue
		}
		events = append(events, *ev)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].FirstAt.After(events[j].FirstAt)
	})
	return events, nil
}
