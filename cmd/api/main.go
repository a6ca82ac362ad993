package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	pointsapi "github.com/campuspoints/points-api"
	"github.com/campuspoints/points-api/internal/config"
	"github.com/campuspoints/points-api/internal/domain/auth"
	"github.com/campuspoints/points-api/internal/domain/event"
	"github.com/campuspoints/points-api/internal/domain/promotion"
	"github.com/campuspoints/points-api/internal/domain/transaction"
	"github.com/campuspoints/points-api/internal/domain/user"
	"github.com/campuspoints/points-api/internal/middleware"
	"github.com/campuspoints/points-api/internal/pkg/database"
	"github.com/campuspoints/points-api/internal/pkg/imaging"
	"github.com/campuspoints/points-api/internal/pkg/jwt"
	"github.com/campuspoints/points-api/internal/pkg/response"
	"github.com/campuspoints/points-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting CampusPoints API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.RunMigrations(cfg.DatabaseURL, pointsapi.MigrationsFS); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	var avatarStorage storage.Storage
	if cfg.S3Bucket != "" {
		avatarStorage, err = storage.NewS3Storage(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 storage")
		}
	} else {
		avatarStorage, err = storage.NewLocalStorage(cfg.UploadDir, "/uploads")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create local storage")
		}
	}

	imageProcessor := imaging.NewProcessor(imaging.DefaultConfig())

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	transactionRepo := transaction.NewRepository(db)
	promotionRepo := promotion.NewRepository(db)
	eventRepo := event.NewRepository(db)

	// ---------- Services ----------
	var tokenStore auth.TokenStore
	if redis != nil {
		tokenStore = auth.NewRedisTokenStore(redis)
	} else {
		log.Warn().Msg("Redis not configured, using in-memory token store")
		tokenStore = auth.NewMemoryTokenStore()
	}

	authService := auth.NewService(userRepo, tokenStore, jwtService, cfg.ResetTokenTTL)
	promotionService := promotion.NewService(promotionRepo)
	userService := user.NewService(userRepo, &activationTokenAdapter{auth: authService}, &promotionCatalogAdapter{service: promotionService}, avatarStorage, imageProcessor)
	transactionService := transaction.NewService(transactionRepo, userRepo, &promotionSourceAdapter{service: promotionService})
	eventService := event.NewService(eventRepo, userRepo, transactionService)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler(userService)
	transactionHandler := transaction.NewHandler(transactionService)
	promotionHandler := promotion.NewHandler(promotionService)
	eventHandler := event.NewHandler(eventService)

	authMiddleware := middleware.Auth(jwtService)
	loginRateLimit := middleware.RateLimit(redis, "login", cfg.LoginRateLimit, cfg.LoginRateWindow)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	if cfg.S3Bucket == "" {
		fileServer := http.FileServer(http.Dir(cfg.UploadDir))
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		auth.RegisterRoutes(r, authHandler, loginRateLimit)
		user.RegisterRoutes(r, userHandler, authMiddleware)
		transaction.RegisterRoutes(r, transactionHandler, authMiddleware)
		promotion.RegisterRoutes(r, promotionHandler, authMiddleware)
		event.RegisterRoutes(r, eventHandler, authMiddleware)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}

// Adapter implementations to bridge interface mismatches

// activationTokenAdapter lets the user service hand out activation tokens
// through the auth reset-token store.
type activationTokenAdapter struct {
	auth *auth.Service
}

func (a *activationTokenAdapter) Issue(ctx context.Context, utorid string) (string, time.Time, error) {
	return a.auth.IssueActivationToken(ctx, utorid)
}

// promotionCatalogAdapter exposes a user's unredeemed one-time promotions
// for embedding in user views.
type promotionCatalogAdapter struct {
	service *promotion.Service
}

func (a *promotionCatalogAdapter) AvailableFor(ctx context.Context, userID uuid.UUID) ([]user.AvailablePromotion, error) {
	promotions, err := a.service.AvailableOneTime(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]user.AvailablePromotion, 0, len(promotions))
	for i := range promotions {
		p := &promotions[i]
		ap := user.AvailablePromotion{
			ID:     p.ID,
			Name:   p.Name,
			Points: p.Points,
		}
		if p.MinSpending.Valid {
			ap.MinSpending = &p.MinSpending.Float64
		}
		if p.Rate.Valid {
			ap.Rate = &p.Rate.Float64
		}
		result = append(result, ap)
	}
	return result, nil
}

// promotionSourceAdapter adapts the promotion service to the ledger's
// PromotionSource, translating sentinel errors across the boundary.
type promotionSourceAdapter struct {
	service *promotion.Service
}

func (a *promotionSourceAdapter) Resolve(ctx context.Context, userID uuid.UUID, requested []uuid.UUID, spent float64) ([]transaction.AppliedPromotion, error) {
	applied, err := a.service.ResolveForPurchase(ctx, userID, requested, spent)
	if err != nil {
		switch err {
		case promotion.ErrNotFound:
			return nil, transaction.ErrPromotionNotFound
		case promotion.ErrNotApplicable:
			return nil, transaction.ErrPromotionNotApplicable
		case promotion.ErrAlreadyUsed:
			return nil, transaction.ErrPromotionAlreadyUsed
		}
		return nil, err
	}

	result := make([]transaction.AppliedPromotion, 0, len(applied))
	for _, p := range applied {
		result = append(result, transaction.AppliedPromotion{
			ID:      p.ID,
			OneTime: p.OneTime,
			Points:  p.Points,
			Rate:    p.Rate,
		})
	}
	return result, nil
}
