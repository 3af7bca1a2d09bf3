package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/barangaylink/sglgb-backend/internal/middleware"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/services"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type ReportHandler struct {
	log               *logger.Logger
	assessmentService services.AssessmentService
	insightService    services.InsightService
}

func NewReportHandler(baseLog *logger.Logger, assessmentService services.AssessmentService, insightService services.InsightService) *ReportHandler {
	return &ReportHandler{
		log:               baseLog.With("handler", "ReportHandler"),
		assessmentService: assessmentService,
		insightService:    insightService,
	}
}

// GET /api/reports/validated
// Validated assessments with final classification, newest first.
func (h *ReportHandler) ListValidated(c *gin.Context) {
	assessments, err := h.assessmentService.ListValidated(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessments)
}

// GET /api/assessments/:id/insights
// Serves the cached insight or generates it on demand.
func (h *ReportHandler) GetInsights(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}
	assessment, err := h.assessmentService.GetByID(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	if user.Role == types.RoleBLGUUser && assessment.BLGUUserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "assessment belongs to another user"})
		return
	}
	insight, err := h.insightService.GetOrGenerate(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insight)
}
