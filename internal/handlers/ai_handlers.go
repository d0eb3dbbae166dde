package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/ai"
	"github.com/01moynul/seller-console/internal/middleware"
)

// DescribeProduct drafts a description for the listing being edited.
// POST /v1/products/describe
func (h *Handlers) DescribeProduct(c *gin.Context) {
	// 1. Assistant is optional
	if h.Assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Listing assistant is not configured"})
		return
	}

	// 2. Parse Input
	var input ai.ListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 3. Call the model
	text, tokens, err := h.Assistant.Describe(c.Request.Context(), input)
	if err != nil {
		h.logger().Error("describe failed", zap.String("sellerId", middleware.SellerID(c)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI Service unavailable: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"description": text, "tokensUsed": tokens})
}
