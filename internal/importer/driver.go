package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/metrics"
	"github.com/01moynul/seller-console/internal/models"
	"github.com/01moynul/seller-console/internal/upload"
)

var (
	ErrNoProducts       = errors.New("no products found in the uploaded files")
	ErrNoFiles          = errors.New("no files uploaded")
	ErrUploadNotFound   = errors.New("upload not found")
	ErrUploadInProgress = errors.New("upload is still processing")
)

// ProductWriter persists imported products.
type ProductWriter interface {
	InsertProduct(ctx context.Context, p *models.Product) error
	DeleteByUpload(ctx context.Context, uploadID string) (int64, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error)
}

// UploadRecords persists batch metadata.
type UploadRecords interface {
	CreateUpload(ctx context.Context, rec *models.UploadRecord) error
	UpdateUpload(ctx context.Context, rec *models.UploadRecord) error
	GetUpload(ctx context.Context, id string) (*models.UploadRecord, error)
	DeleteUpload(ctx context.Context, id string) error
}

// BrandRegistry registers brand names seen in a batch.
type BrandRegistry interface {
	EnsureBrand(ctx context.Context, name string) (*models.Brand, error)
}

// Uploader stores files of one submission.
type Uploader interface {
	Run(ctx context.Context, items []upload.Item, progress upload.ProgressFunc) ([]upload.Uploaded, error)
}

// File is one spreadsheet received from the seller.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// PreviewResult is the parsed content of a batch before anything is written.
type PreviewResult struct {
	Products []models.Product    `json:"products"`
	Files    []models.FileSummary `json:"files"`
	Warnings []string            `json:"warnings"`
	Variants int                 `json:"totalVariants"`
}

// Driver runs bulk imports.
type Driver struct {
	Grouper  *Grouper
	Products ProductWriter
	Records  UploadRecords
	Brands   BrandRegistry
	Uploader Uploader
	Tracker  *Tracker
	Log      *zap.Logger
}

func (d *Driver) log() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// Preview parses every file and groups the rows of the whole batch, so one
// SKU spread over several files becomes one product. A file that cannot be
// parsed is reported in its summary and does not stop the others.
func (d *Driver) Preview(ctx context.Context, files []File) (*PreviewResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	res := &PreviewResult{Products: []models.Product{}, Warnings: []string{}}

	// 1. Parse each file, re-indexing rows across the batch
	var all []Row
	offset := 0
	for _, f := range files {
		summary := models.FileSummary{Name: f.Name, Size: f.Size}

		raw, err := ParseFile(f.Name, bytes.NewReader(f.Data))
		if err != nil {
			summary.Error = err.Error()
			res.Files = append(res.Files, summary)
			d.log().Warn("spreadsheet parse failed", zap.String("file", f.Name), zap.Error(err))
			continue
		}

		rows := NormalizeRows(raw)
		for i := range rows {
			rows[i].Index += offset
		}
		offset += len(raw)

		summary.Rows = len(rows)
		summary.Products = productCount(rows)
		res.Files = append(res.Files, summary)
		all = append(all, rows...)
	}

	// 2. Group once over the batch
	products, warnings := d.Grouper.Transform(ctx, all)
	for _, p := range products {
		res.Variants += len(p.Variants)
	}
	res.Products = append(res.Products, products...)
	res.Warnings = append(res.Warnings, warnings...)
	return res, nil
}

// productCount is the number of products the rows of one file contribute
// to: one per distinct SKU plus one per row without a SKU.
func productCount(rows []Row) int {
	skus := map[string]struct{}{}
	n := 0
	for _, r := range rows {
		if r.SKU == "" {
			n++
			continue
		}
		skus[r.SKU] = struct{}{}
	}
	return n + len(skus)
}

// ImportRequest describes one batch. UploadID is generated when empty.
type ImportRequest struct {
	UploadID string
	SellerID string
	Files    []File
	Progress func(pct float64)
}

// Import stores the spreadsheets, records the batch and writes its products
// one by one.
func (d *Driver) Import(ctx context.Context, req ImportRequest) (*models.UploadRecord, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(float64) {}
	}
	if req.UploadID == "" {
		req.UploadID = uuid.NewString()
	}
	log := d.log().With(zap.String("uploadId", req.UploadID), zap.String("sellerId", req.SellerID))

	// 1. Parse and group
	preview, err := d.Preview(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	if len(preview.Products) == 0 {
		return nil, ErrNoProducts
	}

	// 2. Keep the source spreadsheets
	stored, err := d.storeFiles(ctx, req.SellerID, req.Files)
	if err != nil {
		return nil, fmt.Errorf("store spreadsheets: %w", err)
	}
	for i := range preview.Files {
		if u, ok := stored[i]; ok {
			preview.Files[i].URL = u.URL
			preview.Files[i].Path = u.Path
		}
	}

	// 3. Create the batch record
	rec := &models.UploadRecord{
		ID:            req.UploadID,
		SellerID:      req.SellerID,
		TotalProducts: len(preview.Products),
		TotalVariants: preview.Variants,
		Files:         preview.Files,
		Categories:    distinct(preview.Products, func(p *models.Product) string { return p.Category.Name }),
		Brands:        distinct(preview.Products, func(p *models.Product) string { return p.Brand }),
		Warnings:      preview.Warnings,
		Status:        models.UploadStatusProcessing,
		UploadedAt:    time.Now().UTC(),
	}
	if err := d.Records.CreateUpload(ctx, rec); err != nil {
		return nil, fmt.Errorf("create upload record: %w", err)
	}

	// 4. Register brands
	if d.Brands != nil {
		for _, b := range rec.Brands {
			if _, err := d.Brands.EnsureBrand(ctx, b); err != nil {
				log.Warn("brand registration failed", zap.String("brand", b), zap.Error(err))
			}
		}
	}

	// 5. Insert products sequentially
	n := len(preview.Products)
	for i := range preview.Products {
		p := &preview.Products[i]
		p.ID = uuid.NewString()
		p.UploadID = rec.ID
		owner := p.Owner()
		if owner == "" {
			owner = req.SellerID
		}
		p.SetSellerID(owner)

		if err := d.Products.InsertProduct(ctx, p); err != nil {
			metrics.RecordImportedProduct(false)
			log.Error("product insert failed", zap.String("sku", p.SKU), zap.Error(err))
			d.fail(ctx, rec, fmt.Errorf("product %s: %w", p.SKU, err))
			return rec, fmt.Errorf("insert product %s: %w", p.SKU, err)
		}
		metrics.RecordImportedProduct(true)
		progress(float64(i+1) / float64(n) * 90)
	}

	// 6. Complete
	done := time.Now().UTC()
	rec.Status = models.UploadStatusCompleted
	rec.CompletedAt = &done
	if err := d.Records.UpdateUpload(ctx, rec); err != nil {
		return rec, fmt.Errorf("complete upload record: %w", err)
	}
	progress(100)
	log.Info("bulk import completed", zap.Int("products", rec.TotalProducts), zap.Int("variants", rec.TotalVariants))
	return rec, nil
}

func (d *Driver) fail(ctx context.Context, rec *models.UploadRecord, cause error) {
	rec.Status = models.UploadStatusFailed
	rec.Error = cause.Error()
	if err := d.Records.UpdateUpload(context.WithoutCancel(ctx), rec); err != nil {
		d.log().Error("failed to mark upload failed", zap.String("uploadId", rec.ID), zap.Error(err))
	}
}

// ImportAsync starts Import in the background and returns the upload id that
// the tracker reports progress under.
func (d *Driver) ImportAsync(ctx context.Context, sellerID string, files []File) string {
	id := uuid.NewString()
	d.Tracker.Start(id, sellerID)

	bg := context.WithoutCancel(ctx)
	go func() {
		rec, err := d.Import(bg, ImportRequest{
			UploadID: id,
			SellerID: sellerID,
			Files:    files,
			Progress: func(pct float64) { d.Tracker.Progress(id, pct) },
		})
		d.Tracker.Finish(id, rec, err)
	}()
	return id
}

func (d *Driver) storeFiles(ctx context.Context, sellerID string, files []File) (map[int]upload.Uploaded, error) {
	if d.Uploader == nil {
		return nil, nil
	}
	items := make([]upload.Item, 0, len(files))
	for _, f := range files {
		data := f.Data
		items = append(items, upload.Item{
			Kind:        upload.KindSpreadsheet,
			Name:        f.Name,
			Size:        int64(len(data)),
			ContentType: f.ContentType,
			Path:        fmt.Sprintf("product-uploads/%s/%s_%s", sellerID, uuid.NewString(), upload.SafeName(f.Name)),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		})
	}
	// every item has the same kind, so upload order equals file order
	up, err := d.Uploader.Run(ctx, items, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[int]upload.Uploaded, len(up))
	for i, u := range up {
		out[i] = u
	}
	return out, nil
}

// DeleteUpload removes a batch and every product it created.
func (d *Driver) DeleteUpload(ctx context.Context, sellerID, uploadID string) (int64, error) {
	rec, err := d.Records.GetUpload(ctx, uploadID)
	if err != nil {
		return 0, err
	}
	if rec.SellerID != sellerID {
		return 0, ErrUploadNotFound
	}
	if rec.Status == models.UploadStatusProcessing && d.Tracker != nil {
		if _, running := d.Tracker.Get(uploadID); running {
			return 0, ErrUploadInProgress
		}
	}

	deleted, err := d.Products.DeleteByUpload(ctx, uploadID)
	if err != nil {
		return 0, fmt.Errorf("delete products of upload: %w", err)
	}
	if err := d.Records.DeleteUpload(ctx, uploadID); err != nil {
		return deleted, fmt.Errorf("delete upload record: %w", err)
	}
	return deleted, nil
}

// Export writes the seller's catalog as a workbook.
func (d *Driver) Export(ctx context.Context, sellerID string) (*excelize.File, error) {
	products, err := d.Products.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].SKU < products[j].SKU })
	return WriteWorkbook(products)
}

func distinct(products []models.Product, field func(*models.Product) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for i := range products {
		v := field(&products[i])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
