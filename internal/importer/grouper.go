package importer

import (
	"context"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/01moynul/seller-console/internal/keywords"
	"github.com/01moynul/seller-console/internal/models"
)

// CategoryResolver looks up display names for category and subcategory ids.
// Missing ids are simply absent from the returned maps.
type CategoryResolver interface {
	CategoryNames(ctx context.Context, ids []string) (map[string]string, error)
	SubCategoryNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Grouper folds spreadsheet rows into products, one product per SKU.
type Grouper struct {
	Now      func() time.Time
	Resolver CategoryResolver
}

type group struct {
	product   models.Product
	firstMain string
}

// Transform groups rows by SKU. Rows without a SKU get a key of their own.
// The returned warnings describe data the grouping ignored.
func (g *Grouper) Transform(ctx context.Context, rows []Row) ([]models.Product, []string) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	ts := now()
	ms := ts.UnixMilli()

	var (
		order    []string
		groups   = map[string]*group{}
		warnings []string
	)

	// 1. Group rows and build variants
	for _, row := range rows {
		key := row.SKU
		if key == "" {
			key = fmt.Sprintf("SKU-%d-%d", ms, row.Index)
		}

		grp, ok := groups[key]
		if !ok {
			grp = &group{product: baseProduct(key, row, ts)}
			groups[key] = grp
			order = append(order, key)
		}
		p := &grp.product

		if row.MainImageURL != "" {
			if len(p.ImageURLs) == 0 {
				p.MainImageURL = row.MainImageURL
				p.ImageURLs = append(p.ImageURLs, imageFromURL(row.MainImageURL, true))
				grp.firstMain = row.MainImageURL
			} else if row.MainImageURL != grp.firstMain {
				warnings = append(warnings, fmt.Sprintf(
					"row %d: main image %s ignored for SKU %s; the first main image is kept",
					row.Index+1, row.MainImageURL, key))
			}
		}
		for _, u := range splitGallery(row.GalleryImages) {
			p.ImageURLs = append(p.ImageURLs, imageFromURL(u, false))
		}

		p.Variants = append(p.Variants, variantFromRow(row, ms))
	}

	// 2. Resolve category names once per unique id
	catNames, subNames := g.resolveNames(ctx, groups)

	// 3. Finish each product
	products := make([]models.Product, 0, len(order))
	for _, key := range order {
		p := groups[key].product
		p.ImageURLs = DedupeImages(p.ImageURLs)

		if p.Category.ID != "" {
			p.Category.Name = nameOr(catNames, p.Category.ID)
		}
		if p.SubCategory != nil {
			p.SubCategory.Name = nameOr(subNames, p.SubCategory.ID)
		}

		p.SearchKeywords = keywords.ForProduct(FieldsOf(&p))
		products = append(products, p)
	}
	return products, warnings
}

func baseProduct(sku string, row Row, ts time.Time) models.Product {
	p := models.Product{
		SKU:         sku,
		Name:        row.Name,
		Description: row.Description,
		Brand:       row.Brand,
		HSNCode:     row.HSNCode,
		ProductTag:  row.ProductTag,
		Status:      models.ProductStatusActive,
		ImageURLs:   []models.ImageRef{},
		Variants:    []models.Variant{},
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if p.ProductTag == "" {
		p.ProductTag = models.DefaultProductTag
	}
	if row.SellerID != "" {
		p.SetSellerID(row.SellerID)
	}
	if row.CategoryID != "" {
		p.Category = models.CategoryRef{ID: row.CategoryID, Name: row.CategoryID}
	}
	if row.SubCategoryID != "" {
		p.SubCategory = &models.CategoryRef{ID: row.SubCategoryID, Name: row.SubCategoryID}
	}
	if row.VideoURL != "" {
		p.VideoURL = row.VideoURL
		p.VideoType = models.VideoTypeUpload
		if IsYouTubeURL(row.VideoURL) {
			p.VideoType = models.VideoTypeYouTube
		}
	}
	return p
}

func variantFromRow(row Row, ms int64) models.Variant {
	v := models.Variant{
		VariantID: fmt.Sprintf("%d-%d", ms, row.Index),
		Color:     row.VariantColor,
		Size:      row.VariantSize,
		Price:     parseNumber(row.VariantPrice),
		Stock:     parseCount(row.VariantStock),
	}
	if row.VariantOfferPrice != "" {
		if offer, ok := parseOptional(row.VariantOfferPrice); ok {
			v.OfferPrice = &offer
		}
	}
	return v
}

func parseOptional(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsYouTubeURL reports whether a video link points at YouTube.
func IsYouTubeURL(u string) bool {
	return strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be")
}

func splitGallery(cell string) []string {
	if cell == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(cell, "|") {
		if u := strings.TrimSpace(part); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func imageFromURL(u string, main bool) models.ImageRef {
	name := path.Base(strings.SplitN(u, "?", 2)[0])
	return models.ImageRef{URL: u, Name: name, Type: "url", IsMain: main}
}

// DedupeImages keeps the first image seen for each URL.
func DedupeImages(images []models.ImageRef) []models.ImageRef {
	seen := make(map[string]bool, len(images))
	out := make([]models.ImageRef, 0, len(images))
	for _, img := range images {
		if seen[img.URL] {
			continue
		}
		seen[img.URL] = true
		out = append(out, img)
	}
	return out
}

func (g *Grouper) resolveNames(ctx context.Context, groups map[string]*group) (map[string]string, map[string]string) {
	var catIDs, subIDs []string
	seenCat, seenSub := map[string]bool{}, map[string]bool{}
	for _, grp := range groups {
		if id := grp.product.Category.ID; id != "" && !seenCat[id] {
			seenCat[id] = true
			catIDs = append(catIDs, id)
		}
		if sc := grp.product.SubCategory; sc != nil && !seenSub[sc.ID] {
			seenSub[sc.ID] = true
			subIDs = append(subIDs, sc.ID)
		}
	}
	if g.Resolver == nil || (len(catIDs) == 0 && len(subIDs) == 0) {
		return nil, nil
	}

	var (
		mu                 sync.Mutex
		catNames, subNames map[string]string
	)
	eg, egCtx := errgroup.WithContext(ctx)
	if len(catIDs) > 0 {
		eg.Go(func() error {
			names, err := g.Resolver.CategoryNames(egCtx, catIDs)
			if err != nil {
				// lookups are best effort; ids stand in for names
				return nil
			}
			mu.Lock()
			catNames = names
			mu.Unlock()
			return nil
		})
	}
	if len(subIDs) > 0 {
		eg.Go(func() error {
			names, err := g.Resolver.SubCategoryNames(egCtx, subIDs)
			if err != nil {
				return nil
			}
			mu.Lock()
			subNames = names
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return catNames, subNames
}

func nameOr(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return n
	}
	return id
}

// FieldsOf is the keyword input of a product.
func FieldsOf(p *models.Product) keywords.ProductFields {
	f := keywords.ProductFields{
		Name:         p.Name,
		Brand:        p.Brand,
		SKU:          p.SKU,
		HSNCode:      p.HSNCode,
		CategoryName: p.Category.Name,
		ProductTag:   p.ProductTag,
	}
	if p.SubCategory != nil {
		f.SubCategoryName = p.SubCategory.Name
	}
	for _, v := range p.Variants {
		f.Colors = append(f.Colors, v.Color)
		f.Sizes = append(f.Sizes, v.Size)
	}
	return f
}
