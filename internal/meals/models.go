package meals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/meallog"
	"github.com/tinybites/tinybites/internal/storage"
)

type MealFoodDTO struct {
	FoodID   string `json:"food_id"`
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
	Logged   bool   `json:"logged"`
	Reaction string `json:"reaction,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Allergy  string `json:"allergy"`
}

type MealDTO struct {
	ID           string        `json:"id"`
	BabyID       string        `json:"baby_id"`
	Date         string        `json:"date"`
	MealType     string        `json:"meal_type"`
	Status       string        `json:"status"`
	Completed    bool          `json:"completed"`
	Skipped      bool          `json:"skipped"`
	Notes        string        `json:"notes,omitempty"`
	Foods        []MealFoodDTO `json:"foods"`
	DisplayOrder int           `json:"display_order"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type DayResponse struct {
	Date  string    `json:"date"`
	Meals []MealDTO `json:"meals"`
}

type CreateMealRequest struct {
	BabyID   string `json:"baby_id"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
}

var validMealTypes = map[string]bool{"breakfast": true, "lunch": true, "dinner": true, "snack": true}

func (r *CreateMealRequest) Validate() error {
	if _, err := uuid.Parse(r.BabyID); err != nil {
		return fmt.Errorf("baby_id must be a valid UUID")
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	if !validMealTypes[r.MealType] {
		return fmt.Errorf("meal_type must be one of breakfast, lunch, dinner, snack")
	}
	return nil
}

func toMealDTO(m storage.Meal) MealDTO {
	dto := MealDTO{
		ID:           m.ID,
		BabyID:       m.BabyID.String(),
		Date:         m.Date,
		MealType:     m.MealType,
		Status:       string(meallog.DeriveStatus(m.PlannedFoods)),
		Completed:    m.Completed,
		Skipped:      m.Skipped,
		Notes:        m.Notes,
		DisplayOrder: m.DisplayOrder,
		UpdatedAt:    m.UpdatedAt,
		Foods:        make([]MealFoodDTO, len(m.PlannedFoods)),
	}
	for i, pf := range m.PlannedFoods {
		dto.Foods[i] = MealFoodDTO{
			FoodID:   pf.Food.ID,
			Name:     pf.Food.Name,
			Emoji:    pf.Food.Emoji,
			Logged:   pf.Logged,
			Reaction: pf.Reaction,
			Amount:   pf.Amount,
			Allergy:  pf.Allergy,
		}
	}
	return dto
}
