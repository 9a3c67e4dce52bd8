package foodhistory

import "github.com/tinybites/tinybites/internal/storage"

type HistoryEntryDTO struct {
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	Reaction string `json:"reaction,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Allergy  string `json:"allergy"`
	Notes    string `json:"notes,omitempty"`
}

type FoodHistoryResponse struct {
	FoodID            string            `json:"food_id"`
	FirstIntroduced   string            `json:"first_introduced,omitempty"`
	TotalServings     int               `json:"total_servings"`
	LastServedDaysAgo int               `json:"last_served_days_ago"`
	Entries           []HistoryEntryDTO `json:"entries"`
}

func toEntryDTO(e storage.FoodHistoryEntry) HistoryEntryDTO {
	return HistoryEntryDTO{
		Date:     e.Date,
		MealType: e.MealType,
		Reaction: e.Reaction,
		Amount:   e.Amount,
		Allergy:  e.Allergy,
		Notes:    e.Notes,
	}
}
