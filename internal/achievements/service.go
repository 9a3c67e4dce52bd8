package achievements

import (
	"context"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

// badgeTier is one food-explorer milestone.
type badgeTier struct {
	id    string
	title string
	goal  int
}

// Milestones count unique foods a baby has actually eaten.
var badgeTiers = []badgeTier{
	{"first-taste", "First Taste", 1},
	{"taster-5", "Little Taster", 5},
	{"explorer-10", "Food Explorer", 10},
	{"adventurer-25", "Flavor Adventurer", 25},
}

// Service summarizes recorded food firsts into badges.
type Service struct {
	storage storage.AchievementsStorage
}

// NewService creates a new achievements service.
func NewService(storage storage.AchievementsStorage) *Service {
	return &Service{storage: storage}
}

// Summary returns the baby's food events and derived badge progress. Unique
// foods are counted over 'logged' events only; planning alone earns nothing.
func (s *Service) Summary(ctx context.Context, ownerUserID string, babyID uuid.UUID) (SummaryResponse, error) {
	events, err := s.storage.ListFoodEvents(ctx, ownerUserID, babyID)
	if err != nil {
		return SummaryResponse{}, err
	}

	unique := make(map[string]bool)
	for _, ev := range events {
		if ev.Source == "logged" {
			unique[ev.FoodID] = true
		}
	}

	resp := SummaryResponse{
		UniqueFoodsTried: len(unique),
		Badges:           make([]BadgeDTO, len(badgeTiers)),
		Events:           make([]FoodEventDTO, len(events)),
	}
	for i, tier := range badgeTiers {
		progress := len(unique)
		if progress > tier.goal {
			progress = tier.goal
		}
		resp.Badges[i] = BadgeDTO{
			ID:       tier.id,
			Title:    tier.title,
			Earned:   len(unique) >= tier.goal,
			Progress: progress,
			Goal:     tier.goal,
		}
	}
	for i, ev := range events {
		resp.Events[i] = toEventDTO(ev)
	}
	return resp, nil
}
