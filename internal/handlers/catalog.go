package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/services"
)

type CatalogHandler struct {
	log            *logger.Logger
	catalogService services.CatalogService
}

func NewCatalogHandler(baseLog *logger.Logger, catalogService services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		log:            baseLog.With("handler", "CatalogHandler"),
		catalogService: catalogService,
	}
}

// GET /api/governance-areas
func (h *CatalogHandler) ListAreas(c *gin.Context) {
	areas, err := h.catalogService.ListAreas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, areas)
}

// GET /api/governance-areas/:id/indicators
func (h *CatalogHandler) ListIndicators(c *gin.Context) {
	areaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid governance area id"})
		return
	}
	indicators, err := h.catalogService.ListIndicators(c.Request.Context(), areaID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, indicators)
}

// POST /api/admin/indicators
func (h *CatalogHandler) CreateIndicator(c *gin.Context) {
	var req struct {
		GovernanceAreaID uuid.UUID              `json:"governance_area_id"`
		Code             string                 `json:"code"`
		Name             string                 `json:"name"`
		Description      string                 `json:"description"`
		FormSchema       map[string]interface{} `json:"form_schema"`
		DisplayOrder     int                    `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	indicator, err := h.catalogService.CreateIndicator(c.Request.Context(), services.IndicatorCreateInput{
		GovernanceAreaID: req.GovernanceAreaID,
		Code:             req.Code,
		Name:             req.Name,
		Description:      req.Description,
		FormSchema:       req.FormSchema,
		DisplayOrder:     req.DisplayOrder,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, indicator)
}
