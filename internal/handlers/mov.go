package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/barangaylink/sglgb-backend/internal/middleware"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/services"
)

const maxMOVUploadBytes = 50 << 20

type MOVHandler struct {
	log               *logger.Logger
	movService        services.MOVService
	assessmentService services.AssessmentService
}

func NewMOVHandler(baseLog *logger.Logger, movService services.MOVService, assessmentService services.AssessmentService) *MOVHandler {
	return &MOVHandler{
		log:               baseLog.With("handler", "MOVHandler"),
		movService:        movService,
		assessmentService: assessmentService,
	}
}

func (h *MOVHandler) requireOwnResponse(c *gin.Context, responseID uuid.UUID) error {
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

// evidenceForm pulls the multipart file and section field out of an upload
// request, writing the error response itself when the form is unusable.
func (h *MOVHandler) evidenceForm(c *gin.Context) (*multipart.FileHeader, string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return nil, "", false
	}
	if fileHeader.Size > maxMOVUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", maxMOVUploadBytes)})
		return nil, "", false
	}
	return fileHeader, c.PostForm("section"), true
}

func movInput(fileHeader *multipart.FileHeader, uploadedByID uuid.UUID) services.MOVCreateInput {
	return services.MOVCreateInput{
		Filename:         fileHeader.Filename,
		OriginalFilename: fileHeader.Filename,
		FileSize:         fileHeader.Size,
		ContentType:      fileHeader.Header.Get("Content-Type"),
		UploadedByID:     uploadedByID,
	}
}

// POST /api/responses/:id/movs
// Multipart upload. The object is stored first; the evidence row follows in
// its own transaction.
func (h *MOVHandler) Upload(c *gin.Context) {
	responseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response id"})
		return
	}
	if err := h.requireOwnResponse(c, responseID); err != nil {
		respondError(c, err)
		return
	}
	fileHeader, section, ok := h.evidenceForm(c)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer file.Close()

	user := middleware.CurrentUser(c)
	mov, err := h.movService.UploadAndAttach(c.Request.Context(), responseID, movInput(fileHeader, user.ID), section, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mov)
}

// POST /api/assessor/responses/:id/movs
// Assessors attach evidence on behalf of a barangay during review. The
// service enforces the governance area scope.
func (h *MOVHandler) UploadForAssessor(c *gin.Context) {
	responseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response id"})
		return
	}
	fileHeader, section, ok := h.evidenceForm(c)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer file.Close()

	user := middleware.CurrentUser(c)
	mov, err := h.movService.UploadForAssessor(c.Request.Context(), user, responseID, movInput(fileHeader, user.ID), section, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mov)
}

// GET /api/responses/:id/movs
func (h *MOVHandler) List(c *gin.Context) {
	responseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response id"})
		return
	}
	movs, err := h.movService.ListByResponse(c.Request.Context(), responseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movs)
}

// DELETE /api/movs/:id
// Two-phase delete: a storage failure aborts with 502 and no DB change.
func (h *MOVHandler) Delete(c *gin.Context) {
	movID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mov id"})
		return
	}
	if err := h.movService.Remove(c.Request.Context(), movID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GET /api/movs/:id/download
func (h *MOVHandler) Download(c *gin.Context) {
	movID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mov id"})
		return
	}
	mov, attrs, reader, err := h.movService.Download(c.Request.Context(), movID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", mov.OriginalFilename))
	c.Header("Content-Length", strconv.FormatInt(attrs.Size, 10))
	contentType := mov.ContentType
	if contentType == "" {
		contentType = attrs.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.log.Warn("MOV download interrupted", "error", err, "mov_id", movID)
	}
}
