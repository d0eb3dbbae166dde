// Package handlers holds the gin handlers of the seller console API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/ai"
	"github.com/01moynul/seller-console/internal/auth"
	"github.com/01moynul/seller-console/internal/email"
	"github.com/01moynul/seller-console/internal/importer"
	"github.com/01moynul/seller-console/internal/models"
	"github.com/01moynul/seller-console/internal/store"
	"github.com/01moynul/seller-console/internal/upload"
	"github.com/01moynul/seller-console/internal/verification"
)

// --- Repositories ---

type SellerRepository interface {
	Create(ctx context.Context, seller *models.Seller) error
	GetByID(ctx context.Context, id string) (*models.Seller, error)
	GetByEmail(ctx context.Context, email string) (*models.Seller, error)
	GetByResetToken(ctx context.Context, token string) (*models.Seller, error)
	UpdateProfile(ctx context.Context, id string, p *models.SellerProfile) error
	SaveVerification(ctx context.Context, id string, docs models.Documents, v models.VerificationStatus) error
	SetStatus(ctx context.Context, id, status string, documentsUploaded bool) error
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

type ProductRepository interface {
	InsertProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error)
	Search(ctx context.Context, sellerID, query string) ([]models.Product, error)
	ReplaceProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type SaleRepository interface {
	InsertSale(ctx context.Context, sale *models.Sale) error
	ListSales(ctx context.Context, sellerID string) ([]models.Sale, error)
}

type OrderRepository interface {
	ListBySeller(ctx context.Context, sellerID string) ([]models.Order, error)
	GetByPath(ctx context.Context, path string) (*models.Order, error)
	UpdateStatus(ctx context.Context, sellerID, ref, status string) (*models.Order, error)
}

type TaxonomyRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListSubCategories(ctx context.Context, categoryID string) ([]models.SubCategory, error)
	ListBrands(ctx context.Context) ([]models.Brand, error)
	EnsureBrand(ctx context.Context, name string) (*models.Brand, error)
	importer.CategoryResolver
}

type UploadRepository interface {
	GetUpload(ctx context.Context, id string) (*models.UploadRecord, error)
	ListUploads(ctx context.Context, sellerID string) ([]models.UploadRecord, error)
}

// MediaUploader uploads a set of files and exposes the backing store for
// single deletes.
type MediaUploader interface {
	Run(ctx context.Context, items []upload.Item, progress upload.ProgressFunc) ([]upload.Uploaded, error)
	Store() upload.ObjectStore
}

// Describer drafts product descriptions.
type Describer interface {
	Describe(ctx context.Context, in ai.ListingInput) (string, int, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Sellers  SellerRepository
	Products ProductRepository
	Sales    SaleRepository
	Orders   OrderRepository
	Taxonomy TaxonomyRepository
	Uploads  UploadRepository

	Importer  *importer.Driver
	Media     MediaUploader
	Sessions  *verification.SessionManager
	Tokens    *auth.TokenIssuer
	Mailer    email.Sender
	Assistant Describer // nil when no Gemini key is configured

	Log           *zap.Logger
	BaseURL       string
	ResetTokenTTL time.Duration
}

func (h *Handlers) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// serverError logs err and answers 500 with a generic message.
func (h *Handlers) serverError(c *gin.Context, msg string, err error) {
	h.logger().Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// notFoundOr answers 404 for store.ErrNotFound and 500 otherwise.
func (h *Handlers) notFoundOr(c *gin.Context, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	h.serverError(c, "Failed to load "+what, err)
}

// session returns the verification session of the seller, writing a 500 on
// failure.
func (h *Handlers) session(c *gin.Context, sellerID string) (*verification.Session, bool) {
	s, err := h.Sessions.Get(c.Request.Context(), sellerID)
	if err != nil {
		h.serverError(c, "Failed to load session", err)
		return nil, false
	}
	return s, true
}
