package babies

import (
	"fmt"
	"time"

	"github.com/tinybites/tinybites/internal/storage"
)

type BabyDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date"`
	AgeMonths int       `json:"age_months"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListBabiesResponse struct {
	Babies []BabyDTO `json:"babies"`
}

type CreateBabyRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
}

type AllergensResponse struct {
	Allergens []string `json:"allergens"`
}

type AddAllergenRequest struct {
	Allergen string `json:"allergen"`
}

func (r *CreateBabyRequest) Validate() error {
	if len(r.Name) < 1 || len(r.Name) > 100 {
		return fmt.Errorf("name must be between 1 and 100 characters")
	}
	birth, err := time.Parse("2006-01-02", r.BirthDate)
	if err != nil {
		return fmt.Errorf("birth_date must be YYYY-MM-DD")
	}
	if birth.After(time.Now().UTC()) {
		return fmt.Errorf("birth_date cannot be in the future")
	}
	return nil
}

func toDTO(b storage.Baby, now time.Time) BabyDTO {
	return BabyDTO{
		ID:        b.ID.String(),
		Name:      b.Name,
		BirthDate: b.BirthDate,
		AgeMonths: ageMonths(b.BirthDate, now),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// ageMonths computes whole months of age as of now. Invalid dates yield 0.
func ageMonths(birthDate string, now time.Time) int {
	birth, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return 0
	}

	months := (now.Year()-birth.Year())*12 + int(now.Month()) - int(birth.Month())
	if now.Day() < birth.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
