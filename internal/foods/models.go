package foods

import "github.com/tinybites/tinybites/internal/storage"

type FoodDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Emoji        string `json:"emoji"`
	Category     string `json:"category"`
	IsAllergen   bool   `json:"is_allergen"`
	AllergenType string `json:"allergen_type,omitempty"`
	MinAgeMonths int    `json:"min_age_months"`
}

type SearchResponse struct {
	Foods   []FoodDTO `json:"foods"`
	HasMore bool      `json:"has_more"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

func toDTO(f storage.Food) FoodDTO {
	return FoodDTO{
		ID:           f.ID,
		Name:         f.Name,
		Emoji:        f.Emoji,
		Category:     f.Category,
		IsAllergen:   f.IsAllergen,
		AllergenType: f.AllergenType,
		MinAgeMonths: f.MinAgeMonths,
	}
}
