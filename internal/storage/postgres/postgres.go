package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tinybites/tinybites/internal/storage"
)

// ErrNotFound aliases the shared sentinel so callers can match either way.
var ErrNotFound = storage.ErrNotFound

// PostgresStorage is the pgx-backed implementation of all storage interfaces.
type PostgresStorage struct {
	pool         *pgxpool.Pool
	catalog      *catalogStorage
	meals        *mealsStorage
	achievements *achievementsStorage
	history      *foodHistoryStorage
	reports      *reportsStorage
}

// New connects to Postgres and seeds the food catalog if it is empty.
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	ps := &PostgresStorage{
		pool:         pool,
		catalog:      newCatalogStorage(pool),
		meals:        newMealsStorage(pool),
		achievements: newAchievementsStorage(pool),
		history:      newFoodHistoryStorage(pool),
		reports:      newReportsStorage(pool),
	}

	if err := ps.catalog.ensureSeeded(ctx); err != nil {
		return nil, err
	}

	return ps, nil
}

func (p *PostgresStorage) ListBabies(ctx context.Context, ownerUserID string) ([]storage.Baby, error) {
	query := `
		SELECT id, owner_user_id, name, birth_date, created_at, updated_at
		FROM babies
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := p.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	babies := []storage.Baby{}
	for rows.Next() {
		var b storage.Baby
		err := rows.Scan(
			&b.ID,
			&b.OwnerUserID,
			&b.Name,
			&b.BirthDate,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		babies = append(babies, b)
	}

	return babies, rows.Err()
}

func (p *PostgresStorage) GetBaby(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.Baby, bool, error) {
	query := `
		SELECT id, owner_user_id, name, birth_date, created_at, updated_at
		FROM babies
		WHERE id = $1 AND owner_user_id = $2
	`

	var b storage.Baby
	err := p.pool.QueryRow(ctx, query, id, ownerUserID).Scan(
		&b.ID,
		&b.OwnerUserID,
		&b.Name,
		&b.BirthDate,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Baby{}, false, nil
	}
	if err != nil {
		return storage.Baby{}, false, err
	}

	return b, true, nil
}

func (p *PostgresStorage) CreateBaby(ctx context.Context, baby *storage.Baby) error {
	if baby.ID == uuid.Nil {
		baby.ID = uuid.New()
	}

	query := `
		INSERT INTO babies (id, owner_user_id, name, birth_date)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	return p.pool.QueryRow(ctx, query,
		baby.ID,
		baby.OwnerUserID,
		baby.Name,
		baby.BirthDate,
	).Scan(&baby.CreatedAt, &baby.UpdatedAt)
}

func (p *PostgresStorage) ListAllergens(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error) {
	if err := p.requireBaby(ctx, ownerUserID, babyID); err != nil {
		return nil, err
	}

	query := `
		SELECT allergen FROM baby_allergens
		WHERE baby_id = $1
		ORDER BY allergen
	`

	rows, err := p.pool.Query(ctx, query, babyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	allergens := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		allergens = append(allergens, a)
	}

	return allergens, rows.Err()
}

func (p *PostgresStorage) AddAllergen(ctx context.Context, ownerUserID string, babyID uuid.UUID, allergen string) error {
	if err := p.requireBaby(ctx, ownerUserID, babyID); err != nil {
		return err
	}

	query := `
		INSERT INTO baby_allergens (baby_id, allergen)
		VALUES ($1, lower(trim($2)))
		ON CONFLICT DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query, babyID, allergen)
	return err
}

func (p *PostgresStorage) ListAcknowledgedFoods(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error) {
	if err := p.requireBaby(ctx, ownerUserID, babyID); err != nil {
		return nil, err
	}

	query := `
		SELECT food_id FROM baby_food_acks
		WHERE baby_id = $1
		ORDER BY acknowledged_at
	`

	rows, err := p.pool.Query(ctx, query, babyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (p *PostgresStorage) AcknowledgeFood(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string) error {
	if err := p.requireBaby(ctx, ownerUserID, babyID); err != nil {
		return err
	}

	query := `
		INSERT INTO baby_food_acks (baby_id, food_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query, babyID, foodID)
	return err
}

// requireBaby checks that the baby exists and belongs to the account.
func (p *PostgresStorage) requireBaby(ctx context.Context, ownerUserID string, babyID uuid.UUID) error {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM babies WHERE id = $1 AND owner_user_id = $2)`,
		babyID, ownerUserID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// GetCatalogStorage returns the food catalog storage.
func (p *PostgresStorage) GetCatalogStorage() storage.FoodCatalogStorage {
	return p.catalog
}

// GetMealsStorage returns the meals storage.
func (p *PostgresStorage) GetMealsStorage() storage.MealsStorage {
	return p.meals
}

// GetAchievementsStorage returns the achievements storage.
func (p *PostgresStorage) GetAchievementsStorage() storage.AchievementsStorage {
	return p.achievements
}

// GetFoodHistoryStorage returns the food history storage.
func (p *PostgresStorage) GetFoodHistoryStorage() storage.FoodHistoryStorage {
	return p.history
}

// GetReportsStorage returns the reports storage.
func (p *PostgresStorage) GetReportsStorage() storage.ReportsStorage {
	return p.reports
}
