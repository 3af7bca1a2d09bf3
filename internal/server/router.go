package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/barangaylink/sglgb-backend/internal/handlers"
	"github.com/barangaylink/sglgb-backend/internal/middleware"
	"github.com/barangaylink/sglgb-backend/internal/platform/envutil"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	AuthHandler       *handlers.AuthHandler
	CatalogHandler    *handlers.CatalogHandler
	AssessmentHandler *handlers.AssessmentHandler
	MOVHandler        *handlers.MOVHandler
	AssessorHandler   *handlers.AssessorHandler
	ReportHandler     *handlers.ReportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	allowOrigins := strings.Split(envutil.Str("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.POST("/register", cfg.AuthHandler.Register)
	api.POST("/login", cfg.AuthHandler.Login)

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.GET("/user", cfg.AuthHandler.GetMe)

	// Catalog
	protected.GET("/governance-areas", cfg.CatalogHandler.ListAreas)
	protected.GET("/governance-areas/:id/indicators", cfg.CatalogHandler.ListIndicators)

	// BLGU self-assessment
	blgu := protected.Group("/")
	blgu.Use(cfg.AuthMiddleware.RequireRole(types.RoleBLGUUser, types.RoleSystemAdmin))
	blgu.GET("/assessments/me", cfg.AssessmentHandler.GetMine)
	blgu.POST("/assessments/:id/responses", cfg.AssessmentHandler.CreateResponse)
	blgu.PATCH("/responses/:id", cfg.AssessmentHandler.UpdateResponse)
	blgu.POST("/assessments/:id/submit", cfg.AssessmentHandler.Submit)
	blgu.POST("/responses/:id/movs", cfg.MOVHandler.Upload)
	blgu.DELETE("/movs/:id", cfg.MOVHandler.Delete)

	// Shared reads
	protected.GET("/assessments/:id", cfg.AssessmentHandler.Get)
	protected.GET("/assessments/:id/insights", cfg.ReportHandler.GetInsights)
	protected.GET("/responses/:id/movs", cfg.MOVHandler.List)
	protected.GET("/responses/:id/feedback", cfg.AssessorHandler.ListFeedback)
	protected.GET("/movs/:id/download", cfg.MOVHandler.Download)

	// Assessor review workflow
	assessor := protected.Group("/assessor")
	assessor.Use(cfg.AuthMiddleware.RequireRole(types.RoleAreaAssessor, types.RoleSystemAdmin))
	assessor.GET("/queue", cfg.AssessorHandler.GetQueue)
	assessor.POST("/responses/:id/validate", cfg.AssessorHandler.ValidateResponse)
	assessor.POST("/responses/:id/movs", cfg.MOVHandler.UploadForAssessor)
	assessor.POST("/assessments/:id/rework", cfg.AssessorHandler.SendForRework)
	assessor.POST("/assessments/:id/finalize", cfg.AssessorHandler.Finalize)

	// Reports
	reports := protected.Group("/reports")
	reports.Use(cfg.AuthMiddleware.RequireRole(types.RoleAreaAssessor, types.RoleSystemAdmin))
	reports.GET("/validated", cfg.ReportHandler.ListValidated)

	// Admin
	admin := protected.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireRole(types.RoleSystemAdmin))
	admin.POST("/indicators", cfg.CatalogHandler.CreateIndicator)

	return router
}
