package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/tinybites/tinybites/internal/achievements"
	"github.com/tinybites/tinybites/internal/auth"
	"github.com/tinybites/tinybites/internal/babies"
	"github.com/tinybites/tinybites/internal/blob"
	"github.com/tinybites/tinybites/internal/config"
	"github.com/tinybites/tinybites/internal/foodhistory"
	"github.com/tinybites/tinybites/internal/foods"
	"github.com/tinybites/tinybites/internal/meallog"
	"github.com/tinybites/tinybites/internal/meals"
	"github.com/tinybites/tinybites/internal/reports"
	"github.com/tinybites/tinybites/internal/selection"
	"github.com/tinybites/tinybites/internal/storage"
	"github.com/tinybites/tinybites/internal/storage/memory"
	"github.com/tinybites/tinybites/internal/storage/postgres"
	"github.com/tinybites/tinybites/internal/userctx"
)

// Server is the HTTP server
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.BabiesStorage
	authMiddleware *auth.Middleware
}

// New creates a new HTTP server
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	s.initStorage()
	s.routes()
	return s
}

// initStorage initializes storage (Memory or Postgres)
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		log.Println("Using in-memory storage")
		s.storage = memory.New()
		return
	}

	log.Println("Connecting to PostgreSQL...")
	ctx := context.Background()
	pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		log.Printf("PostgreSQL connection failed: %v", err)
		log.Println("Falling back to in-memory storage")
		s.storage = memory.New()
		return
	}
	log.Println("PostgreSQL connected")
	s.storage = pgStorage
}

// routes registers all routes
func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Auth API (no auth required)
	authService := auth.NewService(s.config)
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	// POST /v1/auth/dev - local dev token
	s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)

	catalogStorage := s.getCatalogStorage()
	mealsStorage := s.getMealsStorage()
	achievementsStorage := s.getAchievementsStorage()
	historyStorage := s.getFoodHistoryStorage()
	reportsStorage := s.getReportsStorage()

	// Babies API
	babiesHandler := babies.NewHandler(babies.NewService(s.storage))
	s.mux.HandleFunc("GET /v1/babies", babiesHandler.HandleList)
	s.mux.HandleFunc("POST /v1/babies", babiesHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/babies/{id}", babiesHandler.HandleGet)
	s.mux.HandleFunc("GET /v1/babies/{id}/allergens", babiesHandler.HandleListAllergens)
	s.mux.HandleFunc("POST /v1/babies/{id}/allergens", babiesHandler.HandleAddAllergen)

	// Food catalog API
	foodsHandler := foods.NewHandler(foods.NewService(catalogStorage))
	s.mux.HandleFunc("GET /v1/foods", foodsHandler.HandleSearch)
	s.mux.HandleFunc("GET /v1/foods/categories", foodsHandler.HandleCategories)
	s.mux.HandleFunc("GET /v1/foods/{id}", foodsHandler.HandleGet)

	// Meals API
	mealsHandler := meals.NewHandler(meals.NewService(mealsStorage, s.storage))
	s.mux.HandleFunc("GET /v1/meals/day", mealsHandler.HandleGetDay)
	s.mux.HandleFunc("POST /v1/meals", mealsHandler.HandleCreate)
	s.mux.HandleFunc("DELETE /v1/meals/{id}/foods/{foodId}", mealsHandler.HandleRemoveFood)

	// Meal logging API
	meallogHandler := meallog.NewHandler(meallog.NewService(mealsStorage, s.storage, achievementsStorage))
	s.mux.HandleFunc("POST /v1/meals/{id}/log/open", meallogHandler.HandleOpen)
	s.mux.HandleFunc("GET /v1/meals/{id}/log", meallogHandler.HandleOpen)
	s.mux.HandleFunc("POST /v1/meals/{id}/log/update", meallogHandler.HandleUpdate)
	s.mux.HandleFunc("POST /v1/meals/{id}/log/remove", meallogHandler.HandleRemove)
	s.mux.HandleFunc("POST /v1/meals/{id}/log/restore", meallogHandler.HandleRestore)
	s.mux.HandleFunc("POST /v1/meals/{id}/log/ack-allergy", meallogHandler.HandleAckAllergy)
	s.mux.HandleFunc("POST /v1/meals/{id}/log/save", meallogHandler.HandleSave)
	s.mux.HandleFunc("POST /v1/meals/{id}/log/skip", meallogHandler.HandleSkip)

	// Food selection API
	selectionHandler := selection.NewHandler(selection.NewService(mealsStorage, catalogStorage, s.storage, achievementsStorage))
	s.mux.HandleFunc("POST /v1/selection/open", selectionHandler.HandleOpen)
	s.mux.HandleFunc("POST /v1/selection/toggle", selectionHandler.HandleToggle)
	s.mux.HandleFunc("POST /v1/selection/ack-allergen", selectionHandler.HandleAcknowledge)
	s.mux.HandleFunc("POST /v1/selection/confirm", selectionHandler.HandleConfirm)

	// Food history API
	historyHandler := foodhistory.NewHandler(foodhistory.NewService(historyStorage, catalogStorage, s.storage))
	s.mux.HandleFunc("GET /v1/history/foods/{foodId}", historyHandler.HandleGet)

	// Achievements API
	achievementsHandler := achievements.NewHandler(achievements.NewService(achievementsStorage))
	s.mux.HandleFunc("GET /v1/achievements", achievementsHandler.HandleSummary)

	// Reports API
	reportsBlobStore := s.initBlobStore()
	reportsService := reports.NewService(
		reportsStorage,
		mealsStorage,
		s.storage,
		reportsBlobStore,
		s.config.ReportsMaxRangeDays,
		s.config.Blob.S3.PresignTTLSeconds,
		s.config.Blob.S3.PublicBaseURL,
		s.config.Blob.S3.PreferPublicURL,
	)
	reportsHandler := reports.NewHandler(reportsService)
	s.mux.HandleFunc("POST /v1/reports", reportsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/reports", reportsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/reports/{id}/download", reportsHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/reports/{id}", reportsHandler.HandleDelete)
}

// getCatalogStorage returns the food catalog storage based on storage type
func (s *Server) getCatalogStorage() storage.FoodCatalogStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetCatalogStorage()
	case *postgres.PostgresStorage:
		return st.GetCatalogStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// getMealsStorage returns the meals storage based on storage type
func (s *Server) getMealsStorage() storage.MealsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetMealsStorage()
	case *postgres.PostgresStorage:
		return st.GetMealsStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// getAchievementsStorage returns the achievements storage based on storage type
func (s *Server) getAchievementsStorage() storage.AchievementsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetAchievementsStorage()
	case *postgres.PostgresStorage:
		return st.GetAchievementsStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// getFoodHistoryStorage returns the food history storage based on storage type
func (s *Server) getFoodHistoryStorage() storage.FoodHistoryStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetFoodHistoryStorage()
	case *postgres.PostgresStorage:
		return st.GetFoodHistoryStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// getReportsStorage returns the reports storage based on storage type
func (s *Server) getReportsStorage() storage.ReportsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetReportsStorage()
	case *postgres.PostgresStorage:
		return st.GetReportsStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// initBlobStore initializes the blob store for reports.
func (s *Server) initBlobStore() blob.Store {
	log.Printf("INFO blob: initializing store (BLOB_MODE=%s)", s.config.Blob.Mode)
	store, mode, err := blob.NewBlobStore(s.config.Blob, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: failed to initialize store: %v", err)
	}
	log.Printf("INFO blob: reports blob mode: %s", mode)
	return store
}

// handleHealthz reports server status
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start runs the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	// Build middleware chain (outermost first): CORS -> Rate Limit -> Auth -> Default user -> Router
	var handler http.Handler = defaultUserMiddleware(s.mux)
	if s.authMiddleware != nil && s.config.AuthMode != "none" {
		if s.config.AuthRequired {
			handler = s.authMiddleware.RequireAuth(handler)
		} else {
			handler = s.authMiddleware.OptionalAuth(handler)
		}
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)

	log.Printf("Server listening on http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)

	return http.ListenAndServe(addr, handler)
}

// defaultUserMiddleware assigns the shared local account when no
// authenticated user is present (AUTH_MODE=none or optional auth without token).
func defaultUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userctx.GetUserID(r.Context()); !ok {
			r = r.WithContext(userctx.WithUserID(r.Context(), "default"))
		}
		next.ServeHTTP(w, r)
	})
}

// Close closes storage and releases resources
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
