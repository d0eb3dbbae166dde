package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/importer"
	"github.com/01moynul/seller-console/internal/middleware"
	"github.com/01moynul/seller-console/internal/store"
)

// MaxSpreadsheetSize caps each file of a bulk import.
const MaxSpreadsheetSize = 20 << 20

// spreadsheetFiles reads the "files" parts of the form into memory.
func spreadsheetFiles(c *gin.Context) ([]importer.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.New("Invalid multipart form")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return nil, importer.ErrNoFiles
	}

	files := make([]importer.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > MaxSpreadsheetSize {
			return nil, fmt.Errorf("%s is larger than 20MB", fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, importer.File{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

// PreviewBulkUpload handles POST /v1/products/bulk/preview
// Nothing is written.
func (h *Handlers) PreviewBulkUpload(c *gin.Context) {
	files, err := spreadsheetFiles(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Importer.Preview(c.Request.Context(), files)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":      res.Products,
		"files":         res.Files,
		"warnings":      res.Warnings,
		"totalProducts": len(res.Products),
		"totalVariants": res.Variants,
	})
}

// StartBulkUpload handles POST /v1/products/bulk
// The import runs in the background; poll GET /v1/products/bulk/:id.
func (h *Handlers) StartBulkUpload(c *gin.Context) {
	files, err := spreadsheetFiles(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject batches without products before going async
	res, err := h.Importer.Preview(c.Request.Context(), files)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(res.Products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": importer.ErrNoProducts.Error(), "files": res.Files})
		return
	}

	id := h.Importer.ImportAsync(c.Request.Context(), middleware.SellerID(c), files)
	c.JSON(http.StatusAccepted, gin.H{
		"message":       "Import started",
		"uploadId":      id,
		"totalProducts": len(res.Products),
		"totalVariants": res.Variants,
	})
}

// GetBulkUpload handles GET /v1/products/bulk/:id
// Running jobs come from the tracker, finished ones from the upload record.
func (h *Handlers) GetBulkUpload(c *gin.Context) {
	id := c.Param("id")
	sellerID := middleware.SellerID(c)

	if job, ok := h.Importer.Tracker.Get(id); ok {
		if job.SellerID != sellerID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"job": job})
		return
	}

	rec, err := h.Uploads.GetUpload(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr(c, "Upload", err)
		return
	}
	if rec.SellerID != sellerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	}
	progress := 0.0
	if rec.CompletedAt != nil {
		progress = 100
	}
	c.JSON(http.StatusOK, gin.H{"job": importer.Job{
		UploadID:  rec.ID,
		SellerID:  rec.SellerID,
		Status:    rec.Status,
		Progress:  progress,
		Error:     rec.Error,
		Record:    rec,
		StartedAt: rec.UploadedAt,
		UpdatedAt: rec.UploadedAt,
	}})
}

// ListBulkUploads handles GET /v1/products/bulk
func (h *Handlers) ListBulkUploads(c *gin.Context) {
	uploads, err := h.Uploads.ListUploads(c.Request.Context(), middleware.SellerID(c))
	if err != nil {
		h.serverError(c, "Failed to load uploads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

// DeleteBulkUpload handles DELETE /v1/products/bulk/:id
// Removes the batch record and every product it created.
func (h *Handlers) DeleteBulkUpload(c *gin.Context) {
	deleted, err := h.Importer.DeleteUpload(c.Request.Context(), middleware.SellerID(c), c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, importer.ErrUploadInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, importer.ErrUploadNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	default:
		h.serverError(c, "Failed to delete upload", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upload deleted", "deletedProducts": deleted})
}

// ExportProducts handles GET /v1/products/export
// Streams the catalog as an .xlsx in the import column layout.
func (h *Handlers) ExportProducts(c *gin.Context) {
	book, err := h.Importer.Export(c.Request.Context(), middleware.SellerID(c))
	if err != nil {
		h.serverError(c, "Failed to export products", err)
		return
	}
	defer book.Close()

	name := fmt.Sprintf("products_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := book.Write(c.Writer); err != nil {
		h.logger().Error("export write failed", zap.Error(err))
	}
}
