package meallog

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

// Status is the derived lifecycle stage of a meal's logging.
type Status string

const (
	StatusPlanned  Status = "planned"
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
)

// DeriveStatus computes the meal status from the active food set. It is the
// only authority on status; the stored completed flag is set separately by an
// explicit save.
func DeriveStatus(active []storage.FoodLog) Status {
	if len(active) == 0 {
		return StatusPlanned
	}
	logged := 0
	for _, f := range active {
		if f.Logged {
			logged++
		}
	}
	switch {
	case logged == 0:
		return StatusPlanned
	case logged == len(active):
		return StatusComplete
	default:
		return StatusPartial
	}
}

// AllergyAlert is raised when a logged reaction indicates a mild or severe
// allergic response. It stays pending until acknowledged; a newer detection
// replaces an unacknowledged one.
type AllergyAlert struct {
	Food     storage.Food
	Severity string
}

// LogPatch carries the fields of one updateLog call. Nil means "leave as is".
type LogPatch struct {
	Reaction *string
	Amount   *string
	Allergy  *string
}

// Session holds the draft state of one meal's editing session: the planned
// foods with their log fields, the removed-set, the pending allergy alert and
// the draft notes. One session exists per meal at a time.
type Session struct {
	mu sync.Mutex

	mealID      string
	ownerUserID string
	babyID      uuid.UUID
	date        string
	mealType    string

	foods   []storage.FoodLog
	removed map[string]bool
	notes   string
	alert   *AllergyAlert
	saving  bool
}

func newSession(meal storage.Meal) *Session {
	return &Session{
		mealID:      meal.ID,
		ownerUserID: meal.OwnerUserID,
		babyID:      meal.BabyID,
		date:        meal.Date,
		mealType:    meal.MealType,
		foods:       append([]storage.FoodLog(nil), meal.PlannedFoods...),
		removed:     make(map[string]bool),
		notes:       meal.Notes,
	}
}

// activeFoods returns the non-removed entries in planning order.
// Caller must hold s.mu.
func (s *Session) activeFoods() []storage.FoodLog {
	active := []storage.FoodLog{}
	for _, f := range s.foods {
		if !s.removed[f.Food.ID] {
			active = append(active, f)
		}
	}
	return active
}

// updateLog merges the patch into the entry and marks it logged. Recording
// any field counts as logged, even just an amount. An unknown food id is a
// no-op. Caller must hold s.mu.
func (s *Session) updateLog(foodID string, patch LogPatch) {
	for i := range s.foods {
		if s.foods[i].Food.ID != foodID || s.removed[foodID] {
			continue
		}
		if patch.Reaction != nil {
			s.foods[i].Reaction = *patch.Reaction
		}
		if patch.Amount != nil {
			s.foods[i].Amount = *patch.Amount
		}
		if patch.Allergy != nil {
			s.foods[i].Allergy = *patch.Allergy
			if *patch.Allergy == "mild" || *patch.Allergy == "severe" {
				s.alert = &AllergyAlert{Food: s.foods[i].Food, Severity: *patch.Allergy}
			}
		}
		s.foods[i].Logged = true
		return
	}
}

// removeFood marks the food inactive without touching its log fields.
// Caller must hold s.mu.
func (s *Session) removeFood(foodID string) {
	for _, f := range s.foods {
		if f.Food.ID == foodID {
			s.removed[foodID] = true
			return
		}
	}
}

// restoreFood reverses a removal. Caller must hold s.mu.
func (s *Session) restoreFood(foodID string) {
	delete(s.removed, foodID)
}
