package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/01moynul/seller-console/internal/catalog"
	"github.com/01moynul/seller-console/internal/middleware"
	"github.com/01moynul/seller-console/internal/models"
)

//
// --- Seller Dashboard Stats ---
//

type SellerDashboard struct {
	catalog.SellerStats
	Orders models.OrderStatusCounts `json:"orders"`
}

// GetSellerStats returns KPI data for the seller dashboard
// GET /v1/products/stats
func (h *Handlers) GetSellerStats(c *gin.Context) {
	sellerID := middleware.SellerID(c)

	var (
		products []models.Product
		sales    []models.Sale
		orders   []models.Order
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		products, err = h.Products.ListBySeller(ctx, sellerID)
		return err
	})
	g.Go(func() (err error) {
		sales, err = h.Sales.ListSales(ctx, sellerID)
		return err
	})
	g.Go(func() (err error) {
		orders, err = h.Orders.ListBySeller(ctx, sellerID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.serverError(c, "Failed to load dashboard stats", err)
		return
	}

	c.JSON(http.StatusOK, SellerDashboard{
		SellerStats: catalog.ComputeStats(products, sales),
		Orders:      models.CountOrderStatuses(orders),
	})
}

//
// --- Inventory ---
//

type UpdateStockInput struct {
	Stock *int `json:"stock" binding:"required"`
}

// UpdateVariantStock handles PATCH /v1/products/:id/variants/:variantId/stock
func (h *Handlers) UpdateVariantStock(c *gin.Context) {
	var input UpdateStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := h.ownedProduct(c, c.Param("id"))
	if !ok {
		return
	}
	if err := catalog.SetVariantStock(p, c.Param("variantId"), *input.Stock); err != nil {
		if errors.Is(err, catalog.ErrNegativeValue) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	p.Stock = p.TotalStock()
	p.UpdatedAt = time.Now().UTC()

	if err := h.Products.ReplaceProduct(c.Request.Context(), p); err != nil {
		h.notFoundOr(c, "Product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock updated", "product": p})
}

type RecordSaleInput struct {
	Quantity      int      `json:"quantity" binding:"required,gt=0"`
	UnitPrice     *float64 `json:"unitPrice" binding:"omitempty,gte=0"`
	CustomerName  string   `json:"customerName"`
	CustomerPhone string   `json:"customerPhone"`
	PaymentMethod string   `json:"paymentMethod"`
	Notes         string   `json:"notes"`
}

// RecordSale handles POST /v1/products/:id/sales
// Stock is deducted first; the sale is only stored when the product update
// succeeded.
func (h *Handlers) RecordSale(c *gin.Context) {
	ctx := c.Request.Context()
	sellerID := middleware.SellerID(c)

	// 1. --- Bind Input ---
	var input RecordSaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Deduct Stock ---
	p, ok := h.ownedProduct(c, c.Param("id"))
	if !ok {
		return
	}
	before := *p
	before.Variants = append([]models.Variant(nil), p.Variants...)

	if err := catalog.DeductStock(p, input.Quantity); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	now := time.Now().UTC()
	p.Stock = p.TotalStock()
	p.UpdatedAt = now
	if err := h.Products.ReplaceProduct(ctx, p); err != nil {
		h.notFoundOr(c, "Product", err)
		return
	}

	// 3. --- Store Sale ---
	price := catalog.UnitPrice(&before)
	if input.UnitPrice != nil {
		price = *input.UnitPrice
	}
	method := strings.TrimSpace(input.PaymentMethod)
	if method == "" {
		method = "cash"
	}
	sale := &models.Sale{
		ID:            uuid.NewString(),
		ProductID:     p.ID,
		ProductName:   p.Name,
		SellerID:      sellerID,
		Quantity:      input.Quantity,
		UnitPrice:     price,
		TotalAmount:   decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2).InexactFloat64(),
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		PaymentMethod: method,
		Notes:         input.Notes,
		Status:        "completed",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Sales.InsertSale(ctx, sale); err != nil {
		if rerr := h.Products.ReplaceProduct(ctx, &before); rerr != nil {
			h.logger().Error("stock restore failed", zap.String("productId", p.ID), zap.Error(rerr))
		}
		h.serverError(c, "Failed to record sale", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Sale recorded", "sale": sale, "product": p})
}
