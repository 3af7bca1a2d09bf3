package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/barangaylink/sglgb-backend/internal/platform/apierr"
)

// respondError maps service errors onto HTTP responses. Known error kinds
// keep their status and code; everything else becomes a 500.
func respondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	c.JSON(ae.Status, gin.H{"error": ae.Error(), "code": ae.Code})
}
