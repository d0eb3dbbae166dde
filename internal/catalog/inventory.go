package catalog

import (
	"errors"
	"fmt"

	"github.com/01moynul/seller-console/internal/models"
	"github.com/shopspring/decimal"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// SellerStats is the summary shown above a seller's product list.
type SellerStats struct {
	TotalProducts int     `json:"totalProducts"`
	TotalStock    int     `json:"totalStock"`
	TotalValue    int64   `json:"totalValue"`
	AveragePrice  int64   `json:"averagePrice"`
	TotalSold     int     `json:"totalSold"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// UnitPrice is the price a product is valued at: the first variant's offer
// price when set, otherwise its regular price.
func UnitPrice(p *models.Product) float64 {
	if len(p.Variants) == 0 {
		return 0
	}
	v := p.Variants[0]
	if v.OfferPrice != nil && *v.OfferPrice > 0 {
		return *v.OfferPrice
	}
	return v.Price
}

// ComputeStats values the catalog and folds in recorded sales.
func ComputeStats(products []models.Product, sales []models.Sale) SellerStats {
	stats := SellerStats{TotalProducts: len(products)}

	totalValue := decimal.Zero
	priceSum := decimal.Zero
	priceCount := 0
	for i := range products {
		stock := products[i].TotalStock()
		price := decimal.NewFromFloat(UnitPrice(&products[i]))

		stats.TotalStock += stock
		totalValue = totalValue.Add(price.Mul(decimal.NewFromInt(int64(stock))))
		if price.IsPositive() {
			priceSum = priceSum.Add(price)
			priceCount++
		}
	}
	stats.TotalValue = totalValue.Round(0).IntPart()
	if priceCount > 0 {
		stats.AveragePrice = priceSum.Div(decimal.NewFromInt(int64(priceCount))).Round(0).IntPart()
	}

	revenue := decimal.Zero
	for _, s := range sales {
		stats.TotalSold += s.Quantity
		revenue = revenue.Add(decimal.NewFromFloat(s.TotalAmount))
	}
	stats.TotalRevenue = revenue.InexactFloat64()
	return stats
}

// DeductStock removes quantity units from the product. Variants are drained
// in order; a product without variants uses its own stock. The product is
// only modified when enough stock exists, and Stock is left equal to
// TotalStock.
func DeductStock(p *models.Product, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	available := max(p.TotalStock(), 0)
	if len(p.Variants) > 0 {
		available = 0
		for _, v := range p.Variants {
			if v.Stock > 0 {
				available += v.Stock
			}
		}
	}
	if available < quantity {
		return fmt.Errorf("%w: only %d units available", ErrInsufficientStock, available)
	}

	if len(p.Variants) == 0 {
		p.Stock -= quantity
		return nil
	}
	remaining := quantity
	for i := range p.Variants {
		if remaining == 0 {
			break
		}
		if p.Variants[i].Stock <= 0 {
			continue
		}
		take := min(remaining, p.Variants[i].Stock)
		p.Variants[i].Stock -= take
		remaining -= take
	}
	p.Stock = p.TotalStock()
	return nil
}

// SetVariantStock overwrites one variant's stock.
func SetVariantStock(p *models.Product, variantID string, stock int) error {
	if stock < 0 {
		return ErrNegativeValue
	}
	for i := range p.Variants {
		if p.Variants[i].VariantID == variantID {
			p.Variants[i].Stock = stock
			return nil
		}
	}
	return fmt.Errorf("variant %q not found", variantID)
}
