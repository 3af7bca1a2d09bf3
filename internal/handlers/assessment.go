package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/barangaylink/sglgb-backend/internal/middleware"
	"github.com/barangaylink/sglgb-backend/internal/platform/apierr"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/services"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type AssessmentHandler struct {
	log               *logger.Logger
	assessmentService services.AssessmentService
}

func NewAssessmentHandler(baseLog *logger.Logger, assessmentService services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{
		log:               baseLog.With("handler", "AssessmentHandler"),
		assessmentService: assessmentService,
	}
}

// ownAssessment rejects access to assessments belonging to another BLGU
// user. Admins pass.
func ownAssessment(c *gin.Context, assessment *types.Assessment) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apierr.Unauthorized("missing or invalid token")
	}
	if user.Role == types.RoleSystemAdmin {
		return nil
	}
	if assessment.BLGUUserID != user.ID {
		return apierr.Forbidden("assessment belongs to another user")
	}
	return nil
}

// GET /api/assessments/me
// Returns the caller's assessment with its responses, creating the draft on
// first access.
func (h *AssessmentHandler) GetMine(c *gin.Context) {
	user := middleware.CurrentUser(c)
	assessment, err := h.assessmentService.GetOrCreateForUser(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	assessment, responses, err := h.assessmentService.GetWithResponses(c.Request.Context(), assessment.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": assessment, "responses": responses})
}

// GET /api/assessments/:id
func (h *AssessmentHandler) Get(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}
	assessment, responses, err := h.assessmentService.GetWithResponses(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ownAssessment(c, assessment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": assessment, "responses": responses})
}

// POST /api/assessments/:id/responses
func (h *AssessmentHandler) CreateResponse(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}
	var req struct {
		IndicatorID  uuid.UUID              `json:"indicator_id"`
		ResponseData map[string]interface{} `json:"response_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	assessment, err := h.assessmentService.GetByID(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ownAssessment(c, assessment); err != nil {
		respondError(c, err)
		return
	}
	response, err := h.assessmentService.CreateResponse(c.Request.Context(), assessmentID, req.IndicatorID, req.ResponseData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// PATCH /api/responses/:id
func (h *AssessmentHandler) UpdateResponse(c *gin.Context) {
	responseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response id"})
		return
	}
	var req struct {
		ResponseData map[string]interface{} `json:"response_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.requireOwnResponse(c, responseID); err != nil {
		respondError(c, err)
		return
	}
	response, err := h.assessmentService.UpdateResponse(c.Request.Context(), responseID, req.ResponseData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// POST /api/assessments/:id/submit
// Runs the submission gate; 422 carries the violation list when it fails.
func (h *AssessmentHandler) Submit(c *gin.Context) {
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
	if err := ownAssessment(c, assessment); err != nil {
		respondError(c, err)
		return
	}
	result, err := h.assessmentService.Submit(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.IsValid {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AssessmentHandler) requireOwnResponse(c *gin.Context, responseID uuid.UUID) error {
	response, err := h.assessmentService.GetResponse(c.Request.Context(), responseID)
	if err != nil {
		return err
	}
	assessment, err := h.assessmentService.GetByID(c.Request.Context(), response.AssessmentID)
	if err != nil {
		return err
	}
	return ownAssessment(c, assessment)
}
