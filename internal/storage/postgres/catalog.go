package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tinybites/tinybites/internal/storage"
)

type catalogStorage struct {
	pool *pgxpool.Pool
}

func newCatalogStorage(pool *pgxpool.Pool) *catalogStorage {
	return &catalogStorage{pool: pool}
}

// seedFoods is inserted on first startup so a fresh database has a usable
// catalog. Existing rows are never touched.
var seedFoods = []storage.Food{
	{ID: "banana", Name: "Banana", Emoji: "🍌", Category: "fruit", MinAgeMonths: 6},
	{ID: "avocado", Name: "Avocado", Emoji: "🥑", Category: "fruit", MinAgeMonths: 6},
	{ID: "oatmeal", Name: "Oatmeal", Emoji: "🥣", Category: "grain", MinAgeMonths: 6},
	{ID: "sweet-potato", Name: "Sweet Potato", Emoji: "🍠", Category: "vegetable", MinAgeMonths: 6},
	{ID: "carrot", Name: "Carrot", Emoji: "🥕", Category: "vegetable", MinAgeMonths: 6},
	{ID: "apple", Name: "Apple", Emoji: "🍎", Category: "fruit", MinAgeMonths: 6},
	{ID: "pear", Name: "Pear", Emoji: "🍐", Category: "fruit", MinAgeMonths: 6},
	{ID: "broccoli", Name: "Broccoli", Emoji: "🥦", Category: "vegetable", MinAgeMonths: 7},
	{ID: "egg", Name: "Scrambled Egg", Emoji: "🥚", Category: "protein", IsAllergen: true, AllergenType: "egg", MinAgeMonths: 6},
	{ID: "peanut-butter", Name: "Peanut Butter", Emoji: "🥜", Category: "protein", IsAllergen: true, AllergenType: "peanut", MinAgeMonths: 6},
	{ID: "yogurt", Name: "Plain Yogurt", Emoji: "🥛", Category: "dairy", IsAllergen: true, AllergenType: "dairy", MinAgeMonths: 6},
	{ID: "cheese", Name: "Cheese", Emoji: "🧀", Category: "dairy", IsAllergen: true, AllergenType: "dairy", MinAgeMonths: 8},
	{ID: "salmon", Name: "Salmon", Emoji: "🐟", Category: "protein", IsAllergen: true, AllergenType: "fish", MinAgeMonths: 7},
	{ID: "wheat-toast", Name: "Wheat Toast", Emoji: "🍞", Category: "grain", IsAllergen: true, AllergenType: "wheat", MinAgeMonths: 8},
	{ID: "strawberry", Name: "Strawberry", Emoji: "🍓", Category: "fruit", MinAgeMonths: 8},
	{ID: "chicken", Name: "Shredded Chicken", Emoji: "🍗", Category: "protein", MinAgeMonths: 7},
	{ID: "lentils", Name: "Lentils", Emoji: "🍲", Category: "protein", MinAgeMonths: 7},
	{ID: "rice", Name: "Rice", Emoji: "🍚", Category: "grain", MinAgeMonths: 6},
	{ID: "pasta", Name: "Pasta", Emoji: "🍝", Category: "grain", IsAllergen: true, AllergenType: "wheat", MinAgeMonths: 9},
	{ID: "blueberry", Name: "Blueberries", Emoji: "🫐", Category: "fruit", MinAgeMonths: 8},
	{ID: "peas", Name: "Peas", Emoji: "🫛", Category: "vegetable", MinAgeMonths: 6},
	{ID: "tofu", Name: "Tofu", Emoji: "🍱", Category: "protein", IsAllergen: true, AllergenType: "soy", MinAgeMonths: 7},
}

func (s *catalogStorage) ensureSeeded(ctx context.Context) error {
	query := `
		INSERT INTO foods (id, name, emoji, category, is_allergen, allergen_type, min_age_months)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`

	for _, f := range seedFoods {
		_, err := s.pool.Exec(ctx, query,
			f.ID,
			f.Name,
			f.Emoji,
			f.Category,
			f.IsAllergen,
			f.AllergenType,
			f.MinAgeMonths,
		)
		if err != nil {
			return fmt.Errorf("failed to seed food %s: %w", f.ID, err)
		}
	}

	return nil
}

func (s *catalogStorage) SearchFoods(ctx context.Context, q storage.FoodQuery) ([]storage.Food, bool, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	conds := []string{"TRUE"}
	args := []any{}
	arg := 1

	if query := strings.TrimSpace(q.Query); query != "" {
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", arg))
		args = append(args, "%"+query+"%")
		arg++
	}
	if q.Category != "" {
		conds = append(conds, fmt.Sprintf("category = $%d", arg))
		args = append(args, q.Category)
		arg++
	}
	if q.BabyAgeMonths > 0 {
		conds = append(conds, fmt.Sprintf("min_age_months <= $%d", arg))
		args = append(args, q.BabyAgeMonths)
		arg++
	}

	// Fetch one extra row to detect further pages.
	query := fmt.Sprintf(`
		SELECT id, name, emoji, category, is_allergen, allergen_type, min_age_months
		FROM foods
		WHERE %s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, strings.Join(conds, " AND "), arg, arg+1)
	args = append(args, limit+1, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to search foods: %w", err)
	}
	defer rows.Close()

	foods := []storage.Food{}
	for rows.Next() {
		var f storage.Food
		err := rows.Scan(
			&f.ID,
			&f.Name,
			&f.Emoji,
			&f.Category,
			&f.IsAllergen,
			&f.AllergenType,
			&f.MinAgeMonths,
		)
		if err != nil {
			return nil, false, err
		}
		foods = append(foods, f)
	}
	if rows.Err() != nil {
		return nil, false, rows.Err()
	}

	hasMore := len(foods) > limit
	if hasMore {
		foods = foods[:limit]
	}
	return foods, hasMore, nil
}

func (s *catalogStorage) GetFood(ctx context.Context, id string) (storage.Food, bool, error) {
	query := `
		SELECT id, name, emoji, category, is_allergen, allergen_type, min_age_months
		FROM foods
		WHERE id = $1
	`

	var f storage.Food
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&f.ID,
		&f.Name,
		&f.Emoji,
		&f.Category,
		&f.IsAllergen,
		&f.AllergenType,
		&f.MinAgeMonths,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Food{}, false, nil
	}
	if err != nil {
		return storage.Food{}, false, err
	}

	return f, true, nil
}

func (s *catalogStorage) GetCategories(ctx context.Context, babyAgeMonths int) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM foods
		WHERE $1 <= 0 OR min_age_months <= $1
		ORDER BY category
	`

	rows, err := s.pool.Query(ctx, query, babyAgeMonths)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}
