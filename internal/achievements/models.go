package achievements

import (
	"time"

	"github.com/tinybites/tinybites/internal/storage"
)

type FoodEventDTO struct {
	FoodID   string    `json:"food_id"`
	FoodName string    `json:"food_name"`
	Source   string    `json:"source"`
	FirstAt  time.Time `json:"first_at"`
	Count    int       `json:"count"`
}

type BadgeDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Earned   bool   `json:"earned"`
	Progress int    `json:"progress"`
	Goal     int    `json:"goal"`
}

type SummaryResponse struct {
	UniqueFoodsTried int            `json:"unique_foods_tried"`
	Badges           []BadgeDTO     `json:"badges"`
	Events           []FoodEventDTO `json:"events"`
}

func toEventDTO(ev storage.FoodEvent) FoodEventDTO {
	return FoodEventDTO{
		FoodID:   ev.FoodID,
		FoodName: ev.FoodName,
		Source:   ev.Source,
		FirstAt:  ev.FirstAt,
		Count:    ev.Count,
	}
}
