package meallog

import (
	"fmt"

	"github.com/tinybites/tinybites/internal/storage"
)

type FoodLogDTO struct {
	FoodID   string `json:"food_id"`
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
	Logged   bool   `json:"logged"`
	Reaction string `json:"reaction,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Allergy  string `json:"allergy"`
	Removed  bool   `json:"removed"`
}

type AlertDTO struct {
	FoodID   string `json:"food_id"`
	FoodName string `json:"food_name"`
	Severity string `json:"severity"`
}

// SessionDTO is the UI-facing view of a logging session: the draft foods,
// the derived status and the pending alert, if any.
type SessionDTO struct {
	MealID   string       `json:"meal_id"`
	Date     string       `json:"date"`
	MealType string       `json:"meal_type"`
	Status   string       `json:"status"`
	Foods    []FoodLogDTO `json:"foods"`
	Notes    string       `json:"notes"`
	Alert    *AlertDTO    `json:"alert,omitempty"`
}

type UpdateLogRequest struct {
	FoodID   string  `json:"food_id"`
	Reaction *string `json:"reaction,omitempty"`
	Amount   *string `json:"amount,omitempty"`
	Allergy  *string `json:"allergy,omitempty"`
}

type FoodRefRequest struct {
	FoodID string `json:"food_id"`
}

// SaveRequest commits the draft. Notes follows the patch convention: nil
// leaves the draft notes alone, an empty string clears them.
type SaveRequest struct {
	MarkComplete bool    `json:"mark_complete"`
	Notes        *string `json:"notes,omitempty"`
}

type SaveResponse struct {
	Status    string `json:"status"`
	Completed bool   `json:"completed"`
}

var validReactions = map[string]bool{"yum": true, "good": true, "meh": true, "yuck": true}
var validAmounts = map[string]bool{"none": true, "some": true, "most": true, "all": true}
var validAllergies = map[string]bool{"none": true, "mild": true, "severe": true}

func (r *UpdateLogRequest) Validate() error {
	if r.FoodID == "" {
		return fmt.Errorf("food_id is required")
	}
	if r.Reaction != nil && !validReactions[*r.Reaction] {
		return fmt.Errorf("reaction must be one of yum, good, meh, yuck")
	}
	if r.Amount != nil && !validAmounts[*r.Amount] {
		return fmt.Errorf("amount must be one of none, some, most, all")
	}
	if r.Allergy != nil && !validAllergies[*r.Allergy] {
		return fmt.Errorf("allergy must be one of none, mild, severe")
	}
	return nil
}

func toSessionDTO(s *Session) SessionDTO {
	dto := SessionDTO{
		MealID:   s.mealID,
		Date:     s.date,
		MealType: s.mealType,
		Status:   string(DeriveStatus(s.activeFoods())),
		Notes:    s.notes,
		Foods:    make([]FoodLogDTO, len(s.foods)),
	}
	for i, f := range s.foods {
		dto.Foods[i] = toFoodLogDTO(f, s.removed[f.Food.ID])
	}
	if s.alert != nil {
		dto.Alert = &AlertDTO{
			FoodID:   s.alert.Food.ID,
			FoodName: s.alert.Food.Name,
			Severity: s.alert.Severity,
		}
	}
	return dto
}

func toFoodLogDTO(f storage.FoodLog, removed bool) FoodLogDTO {
	return FoodLogDTO{
		FoodID:   f.Food.ID,
		Name:     f.Food.Name,
		Emoji:    f.Food.Emoji,
		Logged:   f.Logged,
		Reaction: f.Reaction,
		Amount:   f.Amount,
		Allergy:  f.Allergy,
		Removed:  removed,
	}
}
