package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/barangaylink/sglgb-backend/internal/db"
	"github.com/barangaylink/sglgb-backend/internal/handlers"
	"github.com/barangaylink/sglgb-backend/internal/middleware"
	"github.com/barangaylink/sglgb-backend/internal/platform/envutil"
	"github.com/barangaylink/sglgb-backend/internal/platform/gcp"
	"github.com/barangaylink/sglgb-backend/internal/platform/gemini"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/server"
	"github.com/barangaylink/sglgb-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.Str("JWT_SECRET_KEY", "defaultsecret")
	accessTokenTTL := envutil.Int("ACCESS_TOKEN_TTL", 3600)
	insightMaxRetries := envutil.Int("INSIGHT_MAX_RETRIES", 3)
	insightRetryDelay := envutil.Int("INSIGHT_RETRY_DELAY_SECONDS", 60)
	performanceYear := envutil.Int("PERFORMANCE_YEAR", time.Now().Year()-1)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	areaRepo := repos.NewGovernanceAreaRepo(thePG, log)
	indicatorRepo := repos.NewIndicatorRepo(thePG, log)
	assessmentRepo := repos.NewAssessmentRepo(thePG, log)
	responseRepo := repos.NewResponseRepo(thePG, log)
	movRepo := repos.NewMOVRepo(thePG, log)
	feedbackRepo := repos.NewFeedbackRepo(thePG, log)

	// Seed
	if err := services.SeedGovernanceAreas(context.Background(), thePG, log, areaRepo); err != nil {
		log.Error("Governance area seeding failed", "error", err)
		os.Exit(1)
	}

	// External clients
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	geminiClient, err := gemini.NewClient(log)
	if err != nil {
		log.Warn("Gemini unavailable, insights served from cache only", "error", err)
	}
	notificationQueue, err := services.NewRedisNotificationQueue(log)
	if err != nil {
		log.Warn("Redis unavailable, notifications disabled", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(thePG, log, userRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	catalogService := services.NewCatalogService(thePG, log, areaRepo, indicatorRepo)
	assessmentService := services.NewAssessmentService(thePG, log, assessmentRepo, responseRepo, indicatorRepo, movRepo, performanceYear)
	movService := services.NewMOVService(thePG, log, bucketService, movRepo, responseRepo, assessmentRepo, assessmentService)
	classificationService := services.NewClassificationService(thePG, log, assessmentRepo, areaRepo, indicatorRepo, responseRepo)
	notifierService := services.NewNotifierService(log, notificationQueue)
	insightService := services.NewInsightService(
		thePG, log, geminiClient,
		assessmentRepo, responseRepo, feedbackRepo,
		insightMaxRetries, time.Duration(insightRetryDelay)*time.Second,
	)
	assessorService := services.NewAssessorService(
		thePG, log,
		assessmentRepo, responseRepo, feedbackRepo,
		classificationService, notifierService, insightService,
	)

	// Workers
	if notificationQueue != nil {
		worker := services.NewNotificationWorker(thePG, log, notificationQueue, assessmentRepo, userRepo)
		worker.Start(context.Background())
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(log, catalogService)
	assessmentHandler := handlers.NewAssessmentHandler(log, assessmentService)
	movHandler := handlers.NewMOVHandler(log, movService, assessmentService)
	assessorHandler := handlers.NewAssessorHandler(log, assessorService)
	reportHandler := handlers.NewReportHandler(log, assessmentService, insightService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		AuthHandler:       authHandler,
		CatalogHandler:    catalogHandler,
		AssessmentHandler: assessmentHandler,
		MOVHandler:        movHandler,
		AssessorHandler:   assessorHandler,
		ReportHandler:     reportHandler,
	})

	port := envutil.Str("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
