// Package importer turns seller spreadsheets into products and drives the
// bulk import of a batch.
package importer

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Column names of the spreadsheet contract. Matching is case-sensitive.
const (
	ColSKU               = "SKU"
	ColName              = "Name"
	ColDescription       = "Description"
	ColBrand             = "Brand"
	ColHSNCode           = "HSNCode"
	ColSellerID          = "SellerId"
	ColProductTag        = "ProductTag"
	ColCategoryID        = "CategoryID"
	ColSubCategoryID     = "SubCategoryID"
	ColMainImageURL      = "MainImageURL"
	ColGalleryImages     = "GalleryImages"
	ColVideoURL          = "VideoURL"
	ColVariantColor      = "Variant_Color"
	ColVariantSize       = "Variant_Size"
	ColVariantPrice      = "Variant_Price"
	ColVariantOfferPrice = "Variant_OfferPrice"
	ColVariantStock      = "Variant_Stock"
)

// Columns lists the vocabulary in export order.
var Columns = []string{
	ColSKU, ColName, ColDescription, ColBrand, ColHSNCode, ColSellerID, ColProductTag,
	ColCategoryID, ColSubCategoryID, ColMainImageURL, ColGalleryImages, ColVideoURL,
	ColVariantColor, ColVariantSize, ColVariantPrice, ColVariantOfferPrice, ColVariantStock,
}

// Row is one normalized spreadsheet line. Empty strings mean the cell was
// absent or blank; numeric cells are kept as text and parsed by the grouper.
type Row struct {
	Index int

	SKU           string
	Name          string
	Description   string
	Brand         string
	HSNCode       string
	SellerID      string
	ProductTag    string
	CategoryID    string
	SubCategoryID string
	MainImageURL  string
	GalleryImages string
	VideoURL      string

	VariantColor      string
	VariantSize       string
	VariantPrice      string
	VariantOfferPrice string
	VariantStock      string
}

// NormalizeRows converts decoded rows into typed Rows. Entries that are not
// mappings are skipped; Index keeps the entry's position in raw.
func NormalizeRows(raw []any) []Row {
	rows := make([]Row, 0, len(raw))
	for i, entry := range raw {
		var cells map[string]string
		switch m := entry.(type) {
		case map[string]string:
			cells = m
		case map[string]any:
			cells = make(map[string]string, len(m))
			for k, v := range m {
				cells[k] = cellString(v)
			}
		default:
			continue
		}
		rows = append(rows, normalize(i, cells))
	}
	return rows
}

func normalize(index int, cells map[string]string) Row {
	get := func(col string) string { return strings.TrimSpace(cells[col]) }
	return Row{
		Index:             index,
		SKU:               get(ColSKU),
		Name:              cells[ColName],
		Description:       cells[ColDescription],
		Brand:             cells[ColBrand],
		HSNCode:           cells[ColHSNCode],
		SellerID:          get(ColSellerID),
		ProductTag:        cells[ColProductTag],
		CategoryID:        get(ColCategoryID),
		SubCategoryID:     get(ColSubCategoryID),
		MainImageURL:      get(ColMainImageURL),
		GalleryImages:     cells[ColGalleryImages],
		VideoURL:          videoURL(cells),
		VariantColor:      cells[ColVariantColor],
		VariantSize:       cells[ColVariantSize],
		VariantPrice:      get(ColVariantPrice),
		VariantOfferPrice: get(ColVariantOfferPrice),
		VariantStock:      get(ColVariantStock),
	}
}

// videoURL reads VideoURL, falling back to any header whose letters contain
// "video" (e.g. "Video Link", "product_video").
func videoURL(cells map[string]string) string {
	if v := strings.TrimSpace(cells[ColVideoURL]); v != "" {
		return v
	}
	keys := make([]string, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(lettersOnly(k), "video") {
			if v := strings.TrimSpace(cells[k]); v != "" {
				return v
			}
		}
	}
	return ""
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case interface{ String() string }:
		return val.String()
	}
	return ""
}

func parseNumber(s string) float64 {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// maxStock bounds stock cells so the int conversion cannot wrap.
const maxStock = math.MaxInt32

// parseCount reads a stock cell. Negative or out of range values count as 0.
func parseCount(s string) int {
	v := parseNumber(s)
	if v < 0 || v > maxStock {
		return 0
	}
	return int(v)
}
