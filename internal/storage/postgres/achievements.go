package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tinybites/tinybites/internal/storage"
)

type achievementsStorage struct {
	pool *pgxpool.Pool
}

func newAchievementsStorage(pool *pgxpool.Pool) *achievementsStorage {
	return &achievementsStorage{pool: pool}
}

func (s *achievementsStorage) RecordFoodEvents(ctx context.Context, ownerUserID string, babyID uuid.UUID, foods []storage.Food, source string, at time.Time) (int, error) {
	query := `
		INSERT INTO food_events (owner_user_id, baby_id, food_id, food_name, source, first_at, count)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		ON CONFLICT (owner_user_id, baby_id, food_id, source)
		DO UPDATE SET count = food_events.count + 1,
		              first_at = LEAST(food_events.first_at, EXCLUDED.first_at)
		RETURNING count
	`

	newCount := 0
	for _, f := range foods {
		var count int
		err := s.pool.QueryRow(ctx, query, ownerUserID, babyID, f.ID, f.Name, source, at).Scan(&count)
		if err != nil {
			return 0, fmt.Errorf("failed to record food event: %w", err)
		}
		if count == 1 {
			newCount++
		}
	}

	return newCount, nil
}

func (s *achievementsStorage) ListFoodEvents(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]storage.FoodEvent, error) {
	query := `
		SELECT baby_id, food_id, food_name, source, first_at, count
		FROM food_events
		WHERE owner_user_id = $1 AND baby_id = $2
		ORDER BY first_at DESC
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, babyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []storage.FoodEvent{}
	for rows.Next() {
		var ev storage.FoodEvent
		err := rows.Scan(
			&ev.BabyID,
			&ev.FoodID,
			&ev.FoodName,
			&ev.Source,
			&ev.FirstAt,
			&ev.Count,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}
