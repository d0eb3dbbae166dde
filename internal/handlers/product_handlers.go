package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/catalog"
	"github.com/01moynul/seller-console/internal/importer"
	"github.com/01moynul/seller-console/internal/keywords"
	"github.com/01moynul/seller-console/internal/middleware"
	"github.com/01moynul/seller-console/internal/models"
	"github.com/01moynul/seller-console/internal/upload"
)

// --- Inputs ---

// CreateProductInput is the JSON carried in the "product" form field.
type CreateProductInput struct {
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	SKU           string                 `json:"sku"`
	HSNCode       string                 `json:"hsnCode"`
	Brand         string                 `json:"brand"`
	CategoryID    string                 `json:"categoryId"`
	SubCategoryID string                 `json:"subCategoryId"`
	ProductTag    string                 `json:"productTag"`
	VideoURL      string                 `json:"videoUrl"`
	Variants      []catalog.VariantInput `json:"variants"`
}

// VariantError reports which variant row was rejected.
type VariantError struct {
	Index int
	Err   error
}

func (e *VariantError) Error() string { return e.Err.Error() }
func (e *VariantError) Unwrap() error { return e.Err }

// BuildVariants applies the manual-entry rules to each row in order.
func BuildVariants(rows []catalog.VariantInput) ([]models.Variant, error) {
	variants := []models.Variant{}
	for i, row := range rows {
		next, err := catalog.AddVariant(variants, row, uuid.NewString())
		if err != nil {
			return nil, &VariantError{Index: i, Err: err}
		}
		variants = next
	}
	return variants, nil
}

// mediaItems collects the files of the form in upload order.
func mediaItems(form *multipart.Form) ([]upload.Item, error) {
	var items []upload.Item

	mains := form.File["mainImage"]
	if len(mains) == 0 {
		return nil, errors.New("Main image is required")
	}
	for _, fh := range append(mains[:1:1], form.File["images"]...) {
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return nil, errors.New("Only image files are allowed for product images")
		}
	}

	main := mains[0]
	items = append(items, upload.Item{
		Kind: upload.KindImage, Name: main.Filename, Size: main.Size,
		ContentType: main.Header.Get("Content-Type"), IsMain: true, Open: openPart(main),
	})

	colors := form.Value["imageColors"]
	var gallery []upload.Item
	for i, fh := range form.File["images"] {
		color := ""
		if i < len(colors) {
			color = strings.TrimSpace(colors[i])
		}
		gallery = append(gallery, upload.Item{
			Kind: upload.KindImage, Name: fh.Filename, Size: fh.Size,
			ContentType: fh.Header.Get("Content-Type"), Color: color, Open: openPart(fh),
		})
	}
	items = append(items, upload.DedupeFiles(gallery)...)

	if videos := form.File["video"]; len(videos) > 0 {
		v := videos[0]
		if !strings.HasPrefix(v.Header.Get("Content-Type"), "video/") {
			return nil, errors.New("Only video files are allowed for the product video")
		}
		items = append(items, upload.Item{
			Kind: upload.KindVideo, Name: v.Filename, Size: v.Size,
			ContentType: v.Header.Get("Content-Type"), Open: openPart(v),
		})
	}
	return items, nil
}

// categoryRefs resolves display names, using "Unknown" and "N/A" when a name
// cannot be found.
func (h *Handlers) categoryRefs(ctx context.Context, categoryID, subCategoryID string) (models.CategoryRef, *models.CategoryRef) {
	cat := models.CategoryRef{ID: categoryID, Name: "Unknown"}
	if names, err := h.Taxonomy.CategoryNames(ctx, []string{categoryID}); err == nil && names[categoryID] != "" {
		cat.Name = names[categoryID]
	} else if err != nil {
		h.logger().Warn("category lookup failed", zap.String("categoryId", categoryID), zap.Error(err))
	}

	if subCategoryID == "" {
		return cat, nil
	}
	sub := &models.CategoryRef{ID: subCategoryID, Name: "N/A"}
	if names, err := h.Taxonomy.SubCategoryNames(ctx, []string{subCategoryID}); err == nil && names[subCategoryID] != "" {
		sub.Name = names[subCategoryID]
	} else if err != nil {
		h.logger().Warn("subcategory lookup failed", zap.String("subCategoryId", subCategoryID), zap.Error(err))
	}
	return cat, sub
}

// CreateProduct handles POST /v1/products (multipart/form-data)
func (h *Handlers) CreateProduct(c *gin.Context) {
	ctx := c.Request.Context()
	sellerID := middleware.SellerID(c)

	// 1. --- Parse Form ---
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	var input CreateProductInput
	if err := json.Unmarshal([]byte(c.PostForm("product")), &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product data: " + err.Error()})
		return
	}

	// 2. --- Validate ---
	input.Name = strings.TrimSpace(input.Name)
	input.SKU = strings.TrimSpace(input.SKU)
	if input.Name == "" || input.SKU == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and SKU are required"})
		return
	}
	if input.CategoryID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category is required"})
		return
	}
	if len(input.Variants) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one variant is required"})
		return
	}
	variants, err := BuildVariants(input.Variants)
	if err != nil {
		var ve *VariantError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "variant": ve.Index})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := mediaItems(form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 3. --- Upload Media ---
	uploaded, err := h.Media.Run(ctx, items, nil)
	if err != nil {
		h.serverError(c, "Failed to upload product media", err)
		return
	}

	// 4. --- Build Product ---
	now := time.Now().UTC()
	cat, sub := h.categoryRefs(ctx, input.CategoryID, input.SubCategoryID)
	p := &models.Product{
		ID:          uuid.NewString(),
		SKU:         input.SKU,
		Name:        input.Name,
		Description: input.Description,
		Brand:       strings.TrimSpace(input.Brand),
		HSNCode:     input.HSNCode,
		Category:    cat,
		SubCategory: sub,
		ProductTag:  input.ProductTag,
		Status:      models.ProductStatusActive,
		Variants:    variants,
		ImageURLs:   []models.ImageRef{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.SetSellerID(sellerID)
	for _, u := range uploaded {
		switch u.Type {
		case upload.KindVideo:
			p.VideoURL = u.URL
			p.VideoPath = u.Path
			p.VideoType = models.VideoTypeUpload
		default:
			p.ImageURLs = append(p.ImageURLs, models.ImageRef{
				URL: u.URL, Name: u.Name, Path: u.Path, Type: "file", Color: u.Color, IsMain: u.IsMain,
			})
			if u.IsMain {
				p.MainImageURL = u.URL
			}
		}
	}
	if p.VideoURL == "" && importer.IsYouTubeURL(input.VideoURL) {
		p.VideoURL = input.VideoURL
		p.VideoType = models.VideoTypeYouTube
	}
	p.Stock = p.TotalStock()
	p.SearchKeywords = keywords.ForProduct(importer.FieldsOf(p))

	// 5. --- Save (undo uploads on failure) ---
	if err := h.Products.InsertProduct(ctx, p); err != nil {
		for _, u := range uploaded {
			h.deleteObject(ctx, u.Path)
		}
		h.serverError(c, "Failed to add product", err)
		return
	}
	if p.Brand != "" {
		if _, err := h.Taxonomy.EnsureBrand(ctx, p.Brand); err != nil {
			h.logger().Warn("brand registration failed", zap.String("brand", p.Brand), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Product added successfully", "product": p})
}

// ownedProduct loads a product and hides products of other sellers.
func (h *Handlers) ownedProduct(c *gin.Context, id string) (*models.Product, bool) {
	p, err := h.Products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr(c, "Product", err)
		return nil, false
	}
	if p.Owner() != middleware.SellerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return nil, false
	}
	return p, true
}

// ListProducts handles GET /v1/products
func (h *Handlers) ListProducts(c *gin.Context) {
	products, err := h.Products.ListBySeller(c.Request.Context(), middleware.SellerID(c))
	if err != nil {
		h.serverError(c, "Failed to load products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// GetProduct handles GET /v1/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	p, ok := h.ownedProduct(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// DeleteProduct handles DELETE /v1/products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	ctx := c.Request.Context()
	p, ok := h.ownedProduct(c, c.Param("id"))
	if !ok {
		return
	}
	if err := h.Products.DeleteProduct(ctx, p.ID); err != nil {
		h.notFoundOr(c, "Product", err)
		return
	}
	for _, img := range p.ImageURLs {
		if img.Type == "file" && img.Path != "" {
			h.deleteObject(ctx, img.Path)
		}
	}
	if p.VideoType == models.VideoTypeUpload && p.VideoPath != "" {
		h.deleteObject(ctx, p.VideoPath)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// SearchProducts handles GET /v1/products/search?q=
func (h *Handlers) SearchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}
	products, err := h.Products.Search(c.Request.Context(), middleware.SellerID(c), q)
	if err != nil {
		h.serverError(c, "Search failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}
