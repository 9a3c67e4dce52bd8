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

type mealsStorage struct {
	pool *pgxpool.Pool
}

func newMealsStorage(pool *pgxpool.Pool) *mealsStorage {
	return &mealsStorage{pool: pool}
}

var mealTypeOrder = map[string]int{"breakfast": 1, "lunch": 2, "dinner": 3, "snack": 4}

func (s *mealsStorage) ListMealsForDay(ctx context.Context, ownerUserID string, babyID uuid.UUID, date string) ([]storage.Meal, error) {
	query := `
		SELECT id, owner_user_id, baby_id, to_char(date, 'YYYY-MM-DD'), meal_type,
		       completed, skipped, notes, display_order, created_at, updated_at
		FROM meals
		WHERE owner_user_id = $1 AND baby_id = $2 AND date = $3
		ORDER BY display_order
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, babyID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	meals := []storage.Meal{}
	for rows.Next() {
		var m storage.Meal
		err := rows.Scan(
			&m.ID,
			&m.OwnerUserID,
			&m.BabyID,
			&m.Date,
			&m.MealType,
			&m.Completed,
			&m.Skipped,
			&m.Notes,
			&m.DisplayOrder,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for i := range meals {
		foods, err := s.listMealFoods(ctx, meals[i].ID)
		if err != nil {
			return nil, err
		}
		meals[i].PlannedFoods = foods
	}

	return meals, nil
}

func (s *mealsStorage) GetMeal(ctx context.Context, ownerUserID string, mealID string) (storage.Meal, bool, error) {
	query := `
		SELECT id, owner_user_id, baby_id, to_char(date, 'YYYY-MM-DD'), meal_type,
		       completed, skipped, notes, display_order, created_at, updated_at
		FROM meals
		WHERE id = $1 AND owner_user_id = $2
	`

	var m storage.Meal
	err := s.pool.QueryRow(ctx, query, mealID, ownerUserID).Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.BabyID,
		&m.Date,
		&m.MealType,
		&m.Completed,
		&m.Skipped,
		&m.Notes,
		&m.DisplayOrder,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Meal{}, false, nil
	}
	if err != nil {
		return storage.Meal{}, false, err
	}

	foods, err := s.listMealFoods(ctx, m.ID)
	if err != nil {
		return storage.Meal{}, false, err
	}
	m.PlannedFoods = foods

	return m, true, nil
}

func (s *mealsStorage) listMealFoods(ctx context.Context, mealID string) ([]storage.FoodLog, error) {
	query := `
		SELECT f.id, f.name, f.emoji, f.category, f.is_allergen, f.allergen_type, f.min_age_months,
		       mf.logged, mf.reaction, mf.amount, mf.allergy
		FROM meal_foods mf
		JOIN foods f ON f.id = mf.food_id
		WHERE mf.meal_id = $1
		ORDER BY mf.position
	`

	rows, err := s.pool.Query(ctx, query, mealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal foods: %w", err)
	}
	defer rows.Close()

	logs := []storage.FoodLog{}
	for rows.Next() {
		var l storage.FoodLog
		err := rows.Scan(
			&l.Food.ID,
			&l.Food.Name,
			&l.Food.Emoji,
			&l.Food.Category,
			&l.Food.IsAllergen,
			&l.Food.AllergenType,
			&l.Food.MinAgeMonths,
			&l.Logged,
			&l.Reaction,
			&l.Amount,
			&l.Allergy,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

func (s *mealsStorage) CreateMeal(ctx context.Context, ownerUserID string, babyID uuid.UUID, date, mealType, idemKey string) (storage.Meal, bool, error) {
	// The (owner, baby, date, meal_type) tuple is the natural key, so the
	// insert is a no-op when the slot already exists.
	query := `
		INSERT INTO meals (id, owner_user_id, baby_id, date, meal_type, display_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_user_id, baby_id, date, meal_type) DO NOTHING
	`

	id := uuid.New().String()
	tag, err := s.pool.Exec(ctx, query, id, ownerUserID, babyID, date, mealType, mealTypeOrder[mealType])
	if err != nil {
		return storage.Meal{}, false, fmt.Errorf("failed to create meal: %w", err)
	}
	created := tag.RowsAffected() > 0

	if idemKey != "" {
		if err := s.markKeyApplied(ctx, idemKey); err != nil {
			return storage.Meal{}, false, err
		}
	}

	lookup := `
		SELECT id, owner_user_id, baby_id, to_char(date, 'YYYY-MM-DD'), meal_type,
		       completed, skipped, notes, display_order, created_at, updated_at
		FROM meals
		WHERE owner_user_id = $1 AND baby_id = $2 AND date = $3 AND meal_type = $4
	`

	var m storage.Meal
	err = s.pool.QueryRow(ctx, lookup, ownerUserID, babyID, date, mealType).Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.BabyID,
		&m.Date,
		&m.MealType,
		&m.Completed,
		&m.Skipped,
		&m.Notes,
		&m.DisplayOrder,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return storage.Meal{}, false, err
	}

	if !created {
		foods, err := s.listMealFoods(ctx, m.ID)
		if err != nil {
			return storage.Meal{}, false, err
		}
		m.PlannedFoods = foods
	} else {
		m.PlannedFoods = []storage.FoodLog{}
	}

	return m, created, nil
}

func (s *mealsStorage) ReplaceMealFoods(ctx context.Context, ownerUserID string, mealID string, foods []storage.Food, idemKey string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	replay, err := claimKey(ctx, tx, idemKey)
	if err != nil {
		return err
	}
	if replay {
		return storage.ErrIdempotentReplay
	}

	if err := requireMealTx(ctx, tx, ownerUserID, mealID); err != nil {
		return err
	}

	// Drop rows for foods no longer planned; keep log fields for the rest.
	ids := make([]string, 0, len(foods))
	for _, f := range foods {
		ids = append(ids, f.ID)
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM meal_foods WHERE meal_id = $1 AND food_id != ALL($2)`,
		mealID, ids,
	)
	if err != nil {
		return fmt.Errorf("failed to prune meal foods: %w", err)
	}

	insert := `
		INSERT INTO meal_foods (meal_id, food_id, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (meal_id, food_id) DO UPDATE SET position = EXCLUDED.position
	`
	for i, f := range foods {
		if _, err := tx.Exec(ctx, insert, mealID, f.ID, i); err != nil {
			return fmt.Errorf("failed to insert meal food: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE meals SET updated_at = now() WHERE id = $1`, mealID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *mealsStorage) LogMeal(ctx context.Context, ownerUserID string, mealID string, logs []storage.FoodLog, notes string, markComplete bool, idemKey string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	replay, err := claimKey(ctx, tx, idemKey)
	if err != nil {
		return err
	}
	if replay {
		return storage.ErrIdempotentReplay
	}

	if err := requireMealTx(ctx, tx, ownerUserID, mealID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM meal_foods WHERE meal_id = $1`, mealID); err != nil {
		return fmt.Errorf("failed to clear meal foods: %w", err)
	}

	insert := `
		INSERT INTO meal_foods (meal_id, food_id, position, logged, reaction, amount, allergy)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, l := range logs {
		_, err := tx.Exec(ctx, insert,
			mealID,
			l.Food.ID,
			i,
			l.Logged,
			l.Reaction,
			l.Amount,
			l.Allergy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert food log: %w", err)
		}
	}

	update := `
		UPDATE meals
		SET notes = $2, completed = completed OR $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update, mealID, notes, markComplete); err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *mealsStorage) MarkMealSkipped(ctx context.Context, ownerUserID string, mealID string) error {
	query := `
		UPDATE meals
		SET skipped = true, updated_at = now()
		WHERE id = $1 AND owner_user_id = $2
	`

	tag, err := s.pool.Exec(ctx, query, mealID, ownerUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mealsStorage) RemoveFoodFromMeal(ctx context.Context, ownerUserID string, mealID string, foodID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := requireMealTx(ctx, tx, ownerUserID, mealID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM meal_foods WHERE meal_id = $1 AND food_id = $2`, mealID, foodID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE meals SET updated_at = now() WHERE id = $1`, mealID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// claimKey records an idempotency key inside the transaction. Returns true
// when the key was already applied by an earlier request.
func claimKey(ctx context.Context, tx pgx.Tx, idemKey string) (bool, error) {
	if idemKey == "" {
		return false, nil
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO idempotency_keys (key) VALUES ($1) ON CONFLICT DO NOTHING`,
		idemKey,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}

func (s *mealsStorage) markKeyApplied(ctx context.Context, idemKey string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key) VALUES ($1) ON CONFLICT DO NOTHING`,
		idemKey,
	)
	return err
}

func requireMealTx(ctx context.Context, tx pgx.Tx, ownerUserID string, mealID string) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM meals WHERE id = $1 AND owner_user_id = $2)`,
		mealID, ownerUserID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
