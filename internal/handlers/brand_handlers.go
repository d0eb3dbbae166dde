package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAllBrands is the handler for GET /v1/brands
func (h *Handlers) GetAllBrands(c *gin.Context) {
	brands, err := h.Taxonomy.ListBrands(c.Request.Context())
	if err != nil {
		h.serverError(c, "Failed to fetch brands", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands})
}
