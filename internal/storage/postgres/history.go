package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tinybites/tinybites/internal/storage"
)

// foodHistoryStorage derives history straight from the meal_foods rows.
type foodHistoryStorage struct {
	pool *pgxpool.Pool
}

func newFoodHistoryStorage(pool *pgxpool.Pool) *foodHistoryStorage {
	return &foodHistoryStorage{pool: pool}
}

func (s *foodHistoryStorage) GetFoodStats(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string, asOf string) (storage.FoodStats, error) {
	query := `
		SELECT to_char(min(m.date), 'YYYY-MM-DD'),
		       count(*),
		       GREATEST($4::date - max(m.date), 0)
		FROM meal_foods mf
		JOIN meals m ON m.id = mf.meal_id
		WHERE m.owner_user_id = $1 AND m.baby_id = $2 AND mf.food_id = $3 AND mf.logged
	`

	var stats storage.FoodStats
	var first *string
	var daysAgo *int
	err := s.pool.QueryRow(ctx, query, ownerUserID, babyID, foodID, asOf).Scan(
		&first,
		&stats.TotalServings,
		&daysAgo,
	)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && first == nil) {
		return storage.FoodStats{LastServedDaysAgo: -1}, nil
	}
	if err != nil {
		return storage.FoodStats{}, fmt.Errorf("failed to get food stats: %w", err)
	}

	stats.FirstIntroduced = *first
	stats.LastServedDaysAgo = *daysAgo
	return stats, nil
}

func (s *foodHistoryStorage) ListFoodHistory(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string, limit int) ([]storage.FoodHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT to_char(m.date, 'YYYY-MM-DD'), m.meal_type, mf.reaction, mf.amount, mf.allergy, m.notes
		FROM meal_foods mf
		JOIN meals m ON m.id = mf.meal_id
		WHERE m.owner_user_id = $1 AND m.baby_id = $2 AND mf.food_id = $3 AND mf.logged
		ORDER BY m.date DESC, m.display_order DESC
		LIMIT $4
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, babyID, foodID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list food history: %w", err)
	}
	defer rows.Close()

	entries := []storage.FoodHistoryEntry{}
	for rows.Next() {
		var e storage.FoodHistoryEntry
		err := rows.Scan(
			&e.Date,
			&e.MealType,
			&e.Reaction,
			&e.Amount,
			&e.Allergy,
			&e.Notes,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
