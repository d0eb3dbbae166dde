package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/middleware"
	"github.com/01moynul/seller-console/internal/models"
	"github.com/01moynul/seller-console/internal/store"
	"github.com/01moynul/seller-console/internal/upload"
	"github.com/01moynul/seller-console/internal/verification"
)

// MaxDocumentSize is the largest verification document accepted.
const MaxDocumentSize = 5 << 20

var documentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// DocumentPath is seller-documents/<sellerId>/<category>_<safeName>_<uuid>.<ext>
func DocumentPath(sellerID string, c models.DocumentCategory, fileName, id string) (path, finalName string) {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	base := unsafeChars.ReplaceAllString(strings.TrimSuffix(fileName, filepath.Ext(fileName)), "_")
	if len(base) > 60 {
		base = base[:60]
	}
	finalName = fmt.Sprintf("%s_%s_%s", c, base, id)
	if ext != "" {
		finalName += "." + ext
	}
	return fmt.Sprintf("seller-documents/%s/%s", sellerID, finalName), finalName
}

var errNoDocument = errors.New("document not found")

// sellerSession returns the seller's session reseeded from the seller row,
// which is the source of truth for documents and statuses.
func (h *Handlers) sellerSession(c *gin.Context, sellerID string) (*verification.Session, *models.Seller, bool) {
	ctx := c.Request.Context()
	sess, ok := h.session(c, sellerID)
	if !ok {
		return nil, nil, false
	}
	var seller *models.Seller
	_, err := sess.Apply(ctx, func(st verification.State) (verification.State, error) {
		row, err := h.Sellers.GetByID(ctx, sellerID)
		if err != nil {
			return st, err
		}
		seller = row
		return reseed(st, row), nil
	})
	if err != nil {
		h.verificationError(c, sellerID, "Failed to load Seller", err)
		return nil, nil, false
	}
	return sess, seller, true
}

// verificationError writes a 404 for unknown sellers, forgetting their
// session, and a 500 otherwise.
func (h *Handlers) verificationError(c *gin.Context, sellerID, msg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.Sessions.Drop(sellerID)
		c.JSON(http.StatusNotFound, gin.H{"error": "Seller not found"})
		return
	}
	h.serverError(c, msg, err)
}

// reseed replaces documents and statuses with the seller row's copy.
// Notifications are kept.
func reseed(st verification.State, seller *models.Seller) verification.State {
	docs, status := seller.Documents, seller.VerificationStatus
	return verification.Reduce(st, verification.LoginSuccess{
		Seller:             seller.Profile(),
		Documents:          &docs,
		VerificationStatus: &status,
	})
}

// updateVerification is the read-modify-write step for verification data.
// Inside the session lock it reseeds from the seller row, applies fn and
// saves the result back to the row before the session commits. The after
// hooks run once the row is saved, still under the lock.
func (h *Handlers) updateVerification(ctx context.Context, sess *verification.Session, sellerID string, fn func(verification.State) (verification.State, error), after ...func(verification.State) error) (verification.State, error) {
	return sess.Apply(ctx, func(st verification.State) (verification.State, error) {
		seller, err := h.Sellers.GetByID(ctx, sellerID)
		if err != nil {
			return st, err
		}
		next, err := fn(reseed(st, seller))
		if err != nil {
			return st, err
		}
		next = verification.WithOverall(next)
		if err := h.Sellers.SaveVerification(ctx, sellerID, next.Documents, next.VerificationStatus); err != nil {
			return st, fmt.Errorf("save verification: %w", err)
		}
		for _, hook := range after {
			if err := hook(next); err != nil {
				return st, err
			}
		}
		return next, nil
	})
}

func documentCategory(c *gin.Context) (models.DocumentCategory, bool) {
	cat, ok := models.ParseDocumentCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown document category"})
	}
	return cat, ok
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return fh.Open() }
}

// UploadDocument handles POST /v1/seller/documents/:category
func (h *Handlers) UploadDocument(c *gin.Context) {
	ctx := c.Request.Context()
	sellerID := middleware.SellerID(c)

	// 1. --- Validate Category & File ---
	category, ok := documentCategory(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > MaxDocumentSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Max file size is 5MB"})
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !documentTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid format. Allowed PDF, JPG, JPEG, PNG"})
		return
	}

	sess, _, ok := h.sellerSession(c, sellerID)
	if !ok {
		return
	}

	// 2. --- Store the File ---
	path, finalName := DocumentPath(sellerID, category, file.Filename, uuid.NewString())
	uploaded, err := h.Media.Run(ctx, []upload.Item{{
		Kind:        upload.KindDocument,
		Name:        file.Filename,
		Size:        file.Size,
		ContentType: contentType,
		Path:        path,
		Open:        openPart(file),
	}}, nil)
	if err != nil {
		h.serverError(c, "Upload failed", err)
		return
	}

	// 3. --- Persist the Record ---
	rec := &models.DocumentRecord{
		FileURL:          uploaded[0].URL,
		FileName:         finalName,
		OriginalFileName: file.Filename,
		FileSize:         file.Size,
		FileType:         contentType,
		Path:             path,
		UploadedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	var previous *models.DocumentRecord
	st, err := h.updateVerification(ctx, sess, sellerID, func(st verification.State) (verification.State, error) {
		previous = st.Documents.Get(category)
		return verification.Reduce(st, verification.UploadDocument{Category: category, Document: rec}), nil
	})
	if err != nil {
		h.deleteObject(ctx, path)
		h.verificationError(c, sellerID, "Failed to save document", err)
		return
	}

	// 4. --- Replace Previous File ---
	if previous != nil && previous.Path != "" && previous.Path != path {
		h.deleteObject(ctx, previous.Path)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "Upload successful",
		"document":           rec,
		"verificationStatus": st.VerificationStatus,
		"progress":           verification.ProgressOf(st.VerificationStatus),
	})
}

// DeleteDocument handles DELETE /v1/seller/documents/:category
func (h *Handlers) DeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()
	sellerID := middleware.SellerID(c)

	category, ok := documentCategory(c)
	if !ok {
		return
	}
	sess, ok := h.session(c, sellerID)
	if !ok {
		return
	}

	// 1. --- Clear the Record ---
	var removed *models.DocumentRecord
	st, err := h.updateVerification(ctx, sess, sellerID, func(st verification.State) (verification.State, error) {
		removed = st.Documents.Get(category)
		if removed == nil {
			return st, errNoDocument
		}
		st.Documents = st.Documents.With(category, nil)
		st.VerificationStatus = st.VerificationStatus.With(category, models.DocNotUploaded)
		return st, nil
	})
	switch {
	case errors.Is(err, errNoDocument):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	case err != nil:
		h.verificationError(c, sellerID, "Delete failed", err)
		return
	}

	// 2. --- Remove the Object (missing objects are fine) ---
	if removed.Path != "" {
		h.deleteObject(ctx, removed.Path)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "Deleted",
		"verificationStatus": st.VerificationStatus,
		"progress":           verification.ProgressOf(st.VerificationStatus),
	})
}

// SubmitDocuments handles POST /v1/seller/documents/submit
func (h *Handlers) SubmitDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	sellerID := middleware.SellerID(c)

	sess, _, ok := h.sellerSession(c, sellerID)
	if !ok {
		return
	}
	st := sess.State()
	if verification.ProgressOf(st.VerificationStatus).Upload < 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Upload all documents first"})
		return
	}

	if err := h.Sellers.SetStatus(ctx, sellerID, models.SellerStatusPendingReview, true); err != nil {
		h.serverError(c, "Submit failed", err)
		return
	}
	if err := sess.Notify(ctx, verification.NotifyInfo, "Documents Submitted",
		"Your documents have been submitted for verification."); err != nil {
		h.logger().Warn("session persist failed", zap.String("sellerId", sellerID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Documents submitted successfully",
		"status":  models.SellerStatusPendingReview,
	})
}

func (h *Handlers) deleteObject(ctx context.Context, path string) {
	if err := h.Media.Store().Delete(context.WithoutCancel(ctx), path); err != nil {
		h.logger().Warn("object delete failed", zap.String("path", path), zap.Error(err))
	}
}
