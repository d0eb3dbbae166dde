package models

import (
	"fmt"
	"time"
)

// ProductStatusActive is the only status the console writes for new listings.
const ProductStatusActive = "Active"

// DefaultProductTag is used when a bulk row carries no ProductTag.
const DefaultProductTag = "General"

// Video types stored alongside videoUrl.
const (
	VideoTypeYouTube = "youtube"
	VideoTypeUpload  = "upload"
)

// CategoryRef is the {id,name} pair embedded in product documents.
type CategoryRef struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// ImageRef describes one gallery entry of a product.
type ImageRef struct {
	URL    string `json:"url" bson:"url"`
	Name   string `json:"name" bson:"name"`
	Path   string `json:"path" bson:"path"`
	Type   string `json:"type" bson:"type"` // "file" for uploads, "url" for spreadsheet links
	Color  string `json:"color" bson:"color"`
	IsMain bool   `json:"isMain" bson:"isMain"`
}

// Variant is one purchasable color/size/price/stock combination.
// OfferPrice is a pointer so an absent offer serializes as null.
type Variant struct {
	VariantID  string   `json:"variantId" bson:"variantId"`
	Color      string   `json:"color" bson:"color"`
	Size       string   `json:"size" bson:"size"`
	Price      float64  `json:"price" bson:"price"`
	OfferPrice *float64 `json:"offerPrice" bson:"offerPrice"`
	Stock      int      `json:"stock" bson:"stock"`
}

// Product is the document stored in the 'products' collection.
// The seller id is written under three casings because historical writers
// disagreed on the field name; readers must go through ResolveSellerID.
type Product struct {
	ID          string       `json:"id" bson:"_id"`
	SKU         string       `json:"sku" bson:"sku"`
	Name        string       `json:"name" bson:"name"`
	Description string       `json:"description" bson:"description"`
	Brand       string       `json:"brand" bson:"brand"`
	HSNCode     string       `json:"hsnCode" bson:"hsnCode"`
	Category    CategoryRef  `json:"category" bson:"category"`
	SubCategory *CategoryRef `json:"subCategory" bson:"subCategory"`
	ProductTag  string       `json:"productTag" bson:"productTag"`
	Status      string       `json:"status" bson:"status"`

	SellerID      string `json:"sellerId" bson:"sellerId"`
	SellerIDLower string `json:"sellerid" bson:"sellerid"`
	SellerIDUpper string `json:"sellerID" bson:"sellerID"`

	// --- Media ---
	MainImageURL string     `json:"mainImageUrl" bson:"mainImageUrl"`
	ImageURLs    []ImageRef `json:"imageUrls" bson:"imageUrls"`
	VideoURL     string     `json:"videoUrl" bson:"videoUrl"`
	VideoType    string     `json:"videoType,omitempty" bson:"videoType,omitempty"`
	VideoPath    string     `json:"videoPath,omitempty" bson:"videoPath,omitempty"` // storage path of uploaded videos

	Variants       []Variant `json:"variants" bson:"variants"`
	Stock          int       `json:"stock" bson:"stock"`
	SearchKeywords []string  `json:"searchKeywords" bson:"searchKeywords"`

	// Set only for products created by a bulk import batch.
	UploadID string `json:"uploadId,omitempty" bson:"uploadId,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// SetSellerID writes the owner under every casing readers may look for.
func (p *Product) SetSellerID(id string) {
	p.SellerID = id
	p.SellerIDLower = id
	p.SellerIDUpper = id
}

// Owner returns the seller id using the same priority as ResolveSellerID.
func (p *Product) Owner() string {
	return ResolveSellerID(map[string]any{
		"sellerId": p.SellerID,
		"sellerid": p.SellerIDLower,
		"sellerID": p.SellerIDUpper,
	})
}

// TotalStock sums variant stock, falling back to the product level stock.
func (p *Product) TotalStock() int {
	if len(p.Variants) == 0 {
		return p.Stock
	}
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// SellerIDFields lists, in priority order, the fields that may carry a
// document's owner.
var SellerIDFields = []string{"sellerId", "sellerid", "sellerID", "seller", "owner"}

// ResolveSellerID returns the first non-empty owner field of a free-form
// document, or "" if none is set.
func ResolveSellerID(doc map[string]any) string {
	for _, field := range SellerIDFields {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case fmt.Stringer:
			s = val.String()
		default:
			s = fmt.Sprint(val)
		}
		if s != "" {
			return s
		}
	}
	return ""
}
