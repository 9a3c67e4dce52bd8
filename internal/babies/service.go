package babies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

// ErrNotFound means the baby does not exist in the owner's scope.
var ErrNotFound = errors.New("baby not found")

// Service handles baby profile business logic.
type Service struct {
	storage storage.BabiesStorage
}

// NewService creates a new babies service.
func NewService(storage storage.BabiesStorage) *Service {
	return &Service{storage: storage}
}

// List returns the account's babies.
func (s *Service) List(ctx context.Context, ownerUserID string) ([]BabyDTO, error) {
	babies, err := s.storage.ListBabies(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dtos := make([]BabyDTO, len(babies))
	for i, b := range babies {
		dtos[i] = toDTO(b, now)
	}
	return dtos, nil
}

// Get returns one baby by id.
func (s *Service) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (BabyDTO, error) {
	b, found, err := s.storage.GetBaby(ctx, ownerUserID, id)
	if err != nil {
		return BabyDTO{}, err
	}
	if !found {
		return BabyDTO{}, ErrNotFound
	}
	return toDTO(b, time.Now().UTC()), nil
}

// Create adds a baby profile to the account.
func (s *Service) Create(ctx context.Context, ownerUserID string, req CreateBabyRequest) (BabyDTO, error) {
	if err := req.Validate(); err != nil {
		return BabyDTO{}, fmt.Errorf("validation failed: %w", err)
	}

	baby := &storage.Baby{
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(req.Name),
		BirthDate:   req.BirthDate,
	}
	if err := s.storage.CreateBaby(ctx, baby); err != nil {
		return BabyDTO{}, err
	}
	return toDTO(*baby, time.Now().UTC()), nil
}

// ListAllergens returns the baby's known allergens.
func (s *Service) ListAllergens(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error) {
	allergens, err := s.storage.ListAllergens(ctx, ownerUserID, babyID)
	if err != nil {
		return nil, ErrNotFound
	}
	return allergens, nil
}

// AddAllergen records a known allergen on the baby's profile.
func (s *Service) AddAllergen(ctx context.Context, ownerUserID string, babyID uuid.UUID, allergen string) error {
	if strings.TrimSpace(allergen) == "" {
		return fmt.Errorf("validation failed: allergen is required")
	}
	if err := s.storage.AddAllergen(ctx, ownerUserID, babyID, allergen); err != nil {
		return ErrNotFound
	}
	return nil
}
