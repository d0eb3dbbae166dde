package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/seller-console/internal/middleware"
	"github.com/01moynul/seller-console/internal/models"
	"github.com/01moynul/seller-console/internal/store"
)

// GetMyOrders handles GET /v1/orders
// Returns the seller's orders newest first with status counts.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	orders, err := h.Orders.ListBySeller(c.Request.Context(), middleware.SellerID(c))
	if err != nil {
		h.serverError(c, "Failed to fetch orders", err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"counts": models.CountOrderStatuses(orders),
	})
}

// GetOrderDetails handles GET /v1/orders/by-path?path=users/<uid>/orders/<id>
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order path is required"})
		return
	}

	order, err := h.Orders.GetByPath(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, store.ErrInvalidOrderPath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.notFoundOr(c, "Order", err)
		return
	}
	// Don't reveal orders of other sellers
	if order.SellerID != middleware.SellerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
	Path   string `json:"path"`
}

// UpdateOrderStatus handles PATCH /v1/orders/:id/status
// The body may carry the order path; otherwise :id is used.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidOrderStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	ref := input.Path
	if ref == "" {
		ref = c.Param("id")
	}
	order, err := h.Orders.UpdateStatus(c.Request.Context(), middleware.SellerID(c), ref, input.Status)
	if err != nil {
		h.notFoundOr(c, "Order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": order})
}
