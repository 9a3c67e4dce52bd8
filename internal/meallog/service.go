package meallog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tinybites/tinybites/internal/storage"
)

var (
	// ErrNotFound means the meal no longer exists in the store; the caller
	// should force a reload.
	ErrNotFound = errors.New("meal not found")

	// ErrSavePending rejects a save or skip while another one is in flight
	// for the same session.
	ErrSavePending = errors.New("save already in progress")
)

// Service owns the logging sessions, one per meal. All draft edits are
// session-local and reach the store only on save or skip.
type Service struct {
	meals        storage.MealsStorage
	babies       storage.BabiesStorage
	achievements storage.AchievementsStorage

	mu       sync.Mutex
	sessions map[string]*Session // keyed by meal id
}

// NewService creates a new meal logging service.
func NewService(meals storage.MealsStorage, babies storage.BabiesStorage, achievements storage.AchievementsStorage) *Service {
	return &Service{
		meals:        meals,
		babies:       babies,
		achievements: achievements,
		sessions:     make(map[string]*Session),
	}
}

// Open starts a logging session for the meal, or returns the live one if the
// modal was reopened. The draft starts from the persisted food list.
func (s *Service) Open(ctx context.Context, ownerUserID string, mealID string) (SessionDTO, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[mealID]; ok && sess.ownerUserID == ownerUserID {
		s.mu.Unlock()
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return toSessionDTO(sess), nil
	}
	s.mu.Unlock()

	meal, found, err := s.meals.GetMeal(ctx, ownerUserID, mealID)
	if err != nil {
		return SessionDTO{}, err
	}
	if !found {
		return SessionDTO{}, ErrNotFound
	}

	sess := newSession(meal)

	s.mu.Lock()
	// A concurrent Open may have raced us; the first session wins.
	if existing, ok := s.sessions[mealID]; ok {
		sess = existing
	} else {
		s.sessions[mealID] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return toSessionDTO(sess), nil
}

// UpdateLog applies a reaction/amount/allergy patch to one food and marks it
// logged. An unknown food id leaves the session untouched.
func (s *Service) UpdateLog(ownerUserID string, mealID string, req UpdateLogRequest) (SessionDTO, error) {
	if err := req.Validate(); err != nil {
		return SessionDTO{}, fmt.Errorf("validation failed: %w", err)
	}

	sess, err := s.session(ownerUserID, mealID)
	if err != nil {
		return SessionDTO{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.updateLog(req.FoodID, LogPatch{
		Reaction: req.Reaction,
		Amount:   req.Amount,
		Allergy:  req.Allergy,
	})
	return toSessionDTO(sess), nil
}

// RemoveFood marks the food inactive in the session. Its log fields survive
// so a restore brings the entry back exactly as it was.
func (s *Service) RemoveFood(ownerUserID string, mealID string, foodID string) (SessionDTO, error) {
	sess, err := s.session(ownerUserID, mealID)
	if err != nil {
		return SessionDTO{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.removeFood(foodID)
	return toSessionDTO(sess), nil
}

// RestoreFood reverses a removal within the same session.
func (s *Service) RestoreFood(ownerUserID string, mealID string, foodID string) (SessionDTO, error) {
	sess, err := s.session(ownerUserID, mealID)
	if err != nil {
		return SessionDTO{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.restoreFood(foodID)
	return toSessionDTO(sess), nil
}

// AcknowledgeAllergy persists the pending alert's food name as a known
// allergen on the baby profile and clears the alert. Without a pending alert
// it fails validation.
func (s *Service) AcknowledgeAllergy(ctx context.Context, ownerUserID string, mealID string) (SessionDTO, error) {
	sess, err := s.session(ownerUserID, mealID)
	if err != nil {
		return SessionDTO{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.alert == nil {
		return SessionDTO{}, fmt.Errorf("validation failed: no pending allergy alert")
	}

	if err := s.babies.AddAllergen(ctx, ownerUserID, sess.babyID, sess.alert.Food.Name); err != nil {
		return SessionDTO{}, err
	}
	sess.alert = nil
	return toSessionDTO(sess), nil
}

// Save persists the active log set. The idempotency key is distinct per save
// attempt, so a retried submission of the same action deduplicates while a
// fresh save writes again. Session state survives a failed save so the user
// can retry without re-entering data.
func (s *Service) Save(ctx context.Context, ownerUserID string, mealID string, req SaveRequest) (SaveResponse, error) {
	sess, err := s.session(ownerUserID, mealID)
	if err != nil {
		return SaveResponse{}, err
	}

	sess.mu.Lock()
	if sess.saving {
		sess.mu.Unlock()
		return SaveResponse{}, ErrSavePending
	}
	sess.saving = true
	if req.Notes != nil {
		sess.notes = *req.Notes
	}
	active := sess.activeFoods()
	notes := sess.notes
	idemKey := saveIdempotencyKey(ownerUserID, sess)
	sess.mu.Unlock()

	err = s.meals.LogMeal(ctx, ownerUserID, mealID, active, notes, req.MarkComplete, idemKey)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.saving = false

	replayed := errors.Is(err, storage.ErrIdempotentReplay)
	if err != nil && !replayed {
		return SaveResponse{}, err
	}

	logged := []storage.Food{}
	for _, f := range active {
		if f.Logged {
			logged = append(logged, f.Food)
		}
	}
	// A replayed key means the store deduplicated this write; the first
	// delivery already tracked these foods.
	if len(logged) > 0 && !replayed {
		// Best effort: a tracking failure never blocks the save result.
		if _, err := s.achievements.RecordFoodEvents(ctx, ownerUserID, sess.babyID, logged, "logged", time.Now().UTC()); err != nil {
			log.Printf("WARN meallog: achievement tracking failed: %v", err)
		}
	}

	sess.foods = active
	sess.removed = make(map[string]bool)
	sess.alert = nil

	return SaveResponse{
		Status:    string(DeriveStatus(active)),
		Completed: req.MarkComplete,
	}, nil
}

// Skip marks the meal skipped and tears the session down. It is terminal and
// mutually exclusive with save.
func (s *Service) Skip(ctx context.Context, ownerUserID string, mealID string) error {
	sess, err := s.session(ownerUserID, mealID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.saving {
		sess.mu.Unlock()
		return ErrSavePending
	}
	sess.saving = true
	sess.mu.Unlock()

	err = s.meals.MarkMealSkipped(ctx, ownerUserID, mealID)

	sess.mu.Lock()
	sess.saving = false
	sess.mu.Unlock()

	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, mealID)
	s.mu.Unlock()
	return nil
}

func (s *Service) session(ownerUserID string, mealID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[mealID]
	if !ok || sess.ownerUserID != ownerUserID {
		return nil, ErrNotFound
	}
	return sess, nil
}

func saveIdempotencyKey(ownerUserID string, sess *Session) string {
	return fmt.Sprintf("log_meal_%s_%s_%s_%s_%d",
		ownerUserID, sess.babyID, sess.date, sess.mealType, time.Now().UnixNano())
}
