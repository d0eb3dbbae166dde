// Package catalog holds the manual-entry rules for products and the stock
// arithmetic used by the inventory screens.
package catalog

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/01moynul/seller-console/internal/models"
)

var (
	ErrOfferPrice       = errors.New("variant offer price cannot be greater than or equal to the regular price")
	ErrDuplicateVariant = errors.New("a variant with this color and size already exists")
	ErrEmptyVariant     = errors.New("provide at least color, size, price or stock to add a variant")
	ErrNegativeValue    = errors.New("price and stock must not be negative")
)

// VariantInput is the raw form input of the "add variant" row. All values
// arrive as text.
type VariantInput struct {
	Color      string `json:"color"`
	Size       string `json:"size"`
	Price      string `json:"price"`
	OfferPrice string `json:"offerPrice"`
	Stock      string `json:"stock"`
}

// AddVariant validates in and returns a new slice with the variant appended.
// On error the input slice is returned untouched.
func AddVariant(variants []models.Variant, in VariantInput, id string) ([]models.Variant, error) {
	color := strings.TrimSpace(in.Color)
	size := strings.ToUpper(strings.TrimSpace(in.Size))
	price := parseFloat(in.Price)
	stock := parseInt(in.Stock)

	var offer *float64
	if strings.TrimSpace(in.OfferPrice) != "" {
		v := parseFloat(in.OfferPrice)
		offer = &v
	}

	if price < 0 || stock < 0 || (offer != nil && *offer < 0) {
		return variants, ErrNegativeValue
	}
	if offer != nil && *offer > 0 && *offer >= price {
		return variants, ErrOfferPrice
	}

	if color != "" && size != "" {
		for _, v := range variants {
			if strings.EqualFold(v.Color, color) && strings.EqualFold(v.Size, size) {
				return variants, ErrDuplicateVariant
			}
		}
	}

	if color == "" && size == "" && price == 0 && stock == 0 {
		return variants, ErrEmptyVariant
	}

	if color == "" {
		color = "N/A"
	}
	if size == "" {
		size = "N/A"
	}

	out := make([]models.Variant, len(variants), len(variants)+1)
	copy(out, variants)
	return append(out, models.Variant{
		VariantID:  id,
		Color:      color,
		Size:       size,
		Price:      price,
		OfferPrice: offer,
		Stock:      stock,
	}), nil
}

// RemoveVariant drops the variant with the given id.
func RemoveVariant(variants []models.Variant, id string) []models.Variant {
	out := make([]models.Variant, 0, len(variants))
	for _, v := range variants {
		if v.VariantID != id {
			out = append(out, v)
		}
	}
	return out
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	// "5.0" style input from number fields
	if f := parseFloat(s); f >= math.MinInt32 && f <= math.MaxInt32 {
		return int(f)
	}
	return 0
}
