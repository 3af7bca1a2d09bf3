package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/barangaylink/sglgb-backend/internal/middleware"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/services"
)

type AssessorHandler struct {
	log             *logger.Logger
	assessorService services.AssessorService
}

func NewAssessorHandler(baseLog *logger.Logger, assessorService services.AssessorService) *AssessorHandler {
	return &AssessorHandler{
		log:             baseLog.With("handler", "AssessorHandler"),
		assessorService: assessorService,
	}
}

// GET /api/assessor/queue
func (h *AssessorHandler) GetQueue(c *gin.Context) {
	user := middleware.CurrentUser(c)
	items, err := h.assessorService.GetQueue(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// POST /api/assessor/responses/:id/validate
func (h *AssessorHandler) ValidateResponse(c *gin.Context) {
	responseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response id"})
		return
	}
	var req struct {
		ValidationStatus string `json:"validation_status"`
		Comment          string `json:"comment"`
		InternalNote     string `json:"internal_note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user := middleware.CurrentUser(c)
	if err := h.assessorService.ValidateResponse(c.Request.Context(), user, responseID, req.ValidationStatus, req.Comment, req.InternalNote); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"validated": true})
}

// GET /api/responses/:id/feedback
func (h *AssessorHandler) ListFeedback(c *gin.Context) {
	responseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response id"})
		return
	}
	user := middleware.CurrentUser(c)
	comments, err := h.assessorService.ListFeedback(c.Request.Context(), user, responseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// POST /api/assessor/assessments/:id/rework
func (h *AssessorHandler) SendForRework(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}
	assessment, err := h.assessorService.SendForRework(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// POST /api/assessor/assessments/:id/finalize
func (h *AssessorHandler) Finalize(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}
	result, err := h.assessorService.Finalize(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
