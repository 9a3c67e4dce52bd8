package selection

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

type SelectedFoodDTO struct {
	FoodID string `json:"food_id"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
}

type GateDTO struct {
	FoodID       string `json:"food_id"`
	FoodName     string `json:"food_name"`
	AllergenType string `json:"allergen_type"`
}

// DraftDTO is the UI-facing view of a selection draft: the currently selected
// foods and the blocking allergen gate, if one is pending.
type DraftDTO struct {
	BabyID   string            `json:"baby_id"`
	Date     string            `json:"date"`
	MealType string            `json:"meal_type"`
	Selected []SelectedFoodDTO `json:"selected"`
	Gate     *GateDTO          `json:"gate,omitempty"`
}

type OpenRequest struct {
	BabyID   string `json:"baby_id"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
}

type ToggleRequest struct {
	BabyID   string `json:"baby_id"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	FoodID   string `json:"food_id"`
}

type DraftRefRequest struct {
	BabyID   string `json:"baby_id"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
}

type ConfirmResponse struct {
	MealID  string `json:"meal_id"`
	Created bool   `json:"created"`
}

var validMealTypes = map[string]bool{"breakfast": true, "lunch": true, "dinner": true, "snack": true}

func (r *OpenRequest) Validate() error {
	if _, err := uuid.Parse(r.BabyID); err != nil {
		return fmt.Errorf("baby_id must be a valid UUID")
	}
	if r.Date == "" {
		return fmt.Errorf("date is required")
	}
	if !validMealTypes[r.MealType] {
		return fmt.Errorf("meal_type must be one of breakfast, lunch, dinner, snack")
	}
	return nil
}

func toDraftDTO(d *draft) DraftDTO {
	dto := DraftDTO{
		BabyID:   d.babyID.String(),
		Date:     d.date,
		MealType: d.mealType,
		Selected: make([]SelectedFoodDTO, len(d.selected)),
	}
	for i, f := range d.selected {
		dto.Selected[i] = SelectedFoodDTO{FoodID: f.ID, Name: f.Name, Emoji: f.Emoji}
	}
	if d.gate != nil {
		dto.Gate = &GateDTO{
			FoodID:       d.gate.ID,
			FoodName:     d.gate.Name,
			AllergenType: d.gate.AllergenType,
		}
	}
	return dto
}

func selectedIndex(selected []storage.Food, foodID string) int {
	for i, f := range selected {
		if f.ID == foodID {
			return i
		}
	}
	return -1
}
