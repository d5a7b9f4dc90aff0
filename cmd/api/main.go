package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/vitalstack/formula-backend/config"
	"github.com/vitalstack/formula-backend/internal/database"
	"github.com/vitalstack/formula-backend/internal/middleware"
	"github.com/vitalstack/formula-backend/internal/server"
	"github.com/vitalstack/formula-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis backs the catalog cache and the mutation rate limiter
	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Initialize services
	authService := service.NewAuthService(db, cfg.JWTSecret)
	catalogService := service.NewCatalogService(db, redisClient, logger)
	notificationService := service.NewNotificationService(db, logger)
	formulaService := service.NewFormulaService(db, catalogService, notificationService, logger)

	mutationLimiter := middleware.NewFormulaMutationRateLimiter(redisClient)

	// Create and start server
	srv := server.NewServer(authService, formulaService, catalogService, notificationService, mutationLimiter)
	if err := srv.Start(cfg.ServerPort); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
