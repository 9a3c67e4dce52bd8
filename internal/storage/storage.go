package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrIdempotentReplay is returned by write operations when the supplied
// idempotency key was already applied. Callers treat it as success.
var ErrIdempotentReplay = errors.New("idempotency key already applied")

// ErrNotFound is returned by write operations when the addressed row does
// not exist in the owner's scope.
var ErrNotFound = errors.New("not found")

// Baby is one tracked child within an account.
type Baby struct {
	ID          uuid.UUID
	OwnerUserID string
	Name        string
	BirthDate   string // YYYY-MM-DD
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BabiesStorage manages baby profiles, known allergens and acknowledged
// allergen foods.
type BabiesStorage interface {
	// ListBabies returns all babies of an account.
	ListBabies(ctx context.Context, ownerUserID string) ([]Baby, error)

	// GetBaby returns a baby by ID within the owner scope. bool=false means not found.
	GetBaby(ctx context.Context, ownerUserID string, id uuid.UUID) (Baby, bool, error)

	// CreateBaby creates a new baby profile.
	CreateBaby(ctx context.Context, baby *Baby) error

	// ListAllergens returns the baby's known allergens (lowercased, deduplicated).
	ListAllergens(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error)

	// AddAllergen records an allergen on the baby's profile. Adding an allergen
	// that is already present is a no-op.
	AddAllergen(ctx context.Context, ownerUserID string, babyID uuid.UUID, allergen string) error

	// ListAcknowledgedFoods returns food ids whose allergen warning the user has
	// already acknowledged for this baby.
	ListAcknowledgedFoods(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]string, error)

	// AcknowledgeFood records that the allergen warning for a food was acknowledged.
	AcknowledgeFood(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string) error

	// Close releases the underlying connection (Postgres only).
	Close() error
}

// Food is an immutable catalog entry. Meals reference foods, never own them.
type Food struct {
	ID           string
	Name         string
	Emoji        string
	Category     string
	IsAllergen   bool
	AllergenType string
	MinAgeMonths int
}

// FoodQuery filters a catalog search.
type FoodQuery struct {
	Query         string
	Category      string
	BabyAgeMonths int // 0 = no age filter
	Limit         int
	Offset        int
}

// FoodCatalogStorage is the read-only food catalog.
type FoodCatalogStorage interface {
	// SearchFoods returns a page of matching foods and whether more pages exist.
	SearchFoods(ctx context.Context, q FoodQuery) ([]Food, bool, error)

	// GetFood returns a food by id. bool=false means not found.
	GetFood(ctx context.Context, id string) (Food, bool, error)

	// GetCategories returns the distinct categories available for the given age.
	GetCategories(ctx context.Context, babyAgeMonths int) ([]string, error)
}

// FoodLog is one food attached to a meal, with whatever the user has recorded
// about it. Reaction/Amount are empty until recorded; Allergy defaults to "none".
type FoodLog struct {
	Food     Food
	Logged   bool
	Reaction string // yum | good | meh | yuck | ""
	Amount   string // none | some | most | all | ""
	Allergy  string // none | mild | severe
}

// Meal is the aggregate root for one (baby, date, meal type) slot.
type Meal struct {
	ID           string
	OwnerUserID  string
	BabyID       uuid.UUID
	Date         string // YYYY-MM-DD
	MealType     string // breakfast | lunch | dinner | snack
	PlannedFoods []FoodLog
	Completed    bool
	Skipped      bool
	Notes        string
	DisplayOrder int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MealsStorage manages meal slots and their food logs.
type MealsStorage interface {
	// ListMealsForDay returns the baby's meals for a calendar day, ordered by
	// display order (breakfast, lunch, dinner, snack).
	ListMealsForDay(ctx context.Context, ownerUserID string, babyID uuid.UUID, date string) ([]Meal, error)

	// GetMeal returns a meal by id within the owner scope. bool=false means not found.
	GetMeal(ctx context.Context, ownerUserID string, mealID string) (Meal, bool, error)

	// CreateMeal creates the meal slot for (baby, date, mealType) if it does not
	// exist. The tuple is the natural key: a second call returns the existing
	// meal with created=false regardless of the idempotency key.
	CreateMeal(ctx context.Context, ownerUserID string, babyID uuid.UUID, date, mealType, idemKey string) (meal Meal, created bool, err error)

	// ReplaceMealFoods replaces the meal's planned-food list with the given
	// foods, preserving any log fields already recorded for foods that remain.
	ReplaceMealFoods(ctx context.Context, ownerUserID string, mealID string, foods []Food, idemKey string) error

	// LogMeal replaces the meal's food logs and notes, and sets the completed
	// flag when markComplete is true. A replayed idempotency key returns
	// ErrIdempotentReplay without writing.
	LogMeal(ctx context.Context, ownerUserID string, mealID string, logs []FoodLog, notes string, markComplete bool, idemKey string) error

	// MarkMealSkipped flags the meal as skipped, leaving its planned foods intact.
	MarkMealSkipped(ctx context.Context, ownerUserID string, mealID string) error

	// RemoveFoodFromMeal removes one food from the meal's planned list.
	RemoveFoodFromMeal(ctx context.Context, ownerUserID string, mealID string, foodID string) error
}

// FoodEvent is one recorded food first for a baby and source.
type FoodEvent struct {
	BabyID   uuid.UUID
	FoodID   string
	FoodName string
	Source   string // planned | logged
	FirstAt  time.Time
	Count    int
}

// AchievementsStorage records food firsts for the achievements feature.
type AchievementsStorage interface {
	// RecordFoodEvents upserts events for the foods, bumping counts and keeping
	// the earliest timestamp. Returns how many foods were seen for the first time.
	RecordFoodEvents(ctx context.Context, ownerUserID string, babyID uuid.UUID, foods []Food, source string, at time.Time) (int, error)

	// ListFoodEvents returns all recorded events for a baby, newest first.
	ListFoodEvents(ctx context.Context, ownerUserID string, babyID uuid.UUID) ([]FoodEvent, error)
}

// FoodStats summarizes a baby's experience with one food.
type FoodStats struct {
	FirstIntroduced   string // YYYY-MM-DD, "" if never served
	TotalServings     int
	LastServedDaysAgo int // -1 if never served
}

// FoodHistoryEntry is one past serving of a food.
type FoodHistoryEntry struct {
	Date     string // YYYY-MM-DD
	MealType string
	Reaction string
	Amount   string
	Allergy  string
	Notes    string
}

// FoodHistoryStorage derives per-food history from persisted meal logs.
type FoodHistoryStorage interface {
	// GetFoodStats computes stats for a food as of the given date.
	GetFoodStats(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string, asOf string) (FoodStats, error)

	// ListFoodHistory returns past logged servings of the food, newest first.
	ListFoodHistory(ctx context.Context, ownerUserID string, babyID uuid.UUID, foodID string, limit int) ([]FoodHistoryEntry, error)
}

// ReportMeta is the stored metadata of a generated feeding report.
type ReportMeta struct {
	ID          uuid.UUID
	OwnerUserID string
	BabyID      uuid.UUID
	Format      string  // "pdf" or "csv"
	FromDate    string  // YYYY-MM-DD
	ToDate      string  // YYYY-MM-DD
	ObjectKey   *string // blob key (nil for memory mode)
	SizeBytes   int64
	Status      string // "ready" or "failed"
	Error       *string
	CreatedAt   time.Time
	Data        []byte // only used in memory mode (not stored in DB)
}

// ReportsStorage manages generated report metadata.
type ReportsStorage interface {
	// CreateReport stores report metadata (plus data in memory mode).
	CreateReport(ctx context.Context, report *ReportMeta) error

	// GetReport returns a report by id within the owner scope. bool=false means not found.
	GetReport(ctx context.Context, ownerUserID string, id uuid.UUID) (ReportMeta, bool, error)

	// ListReports returns the account's reports with pagination, newest first.
	ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]ReportMeta, error)

	// DeleteReport removes a report's metadata and data.
	DeleteReport(ctx context.Context, ownerUserID string, id uuid.UUID) error
}
