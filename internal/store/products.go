package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/01moynul/seller-console/internal/models"
)

const (
	productsCollection = "products"
	uploadsCollection  = "productUploads"
	salesCollection    = "sales"
	ordersCollection   = "orders"
)

// sellerFilter matches a document owned by sellerID under any of the
// historical field names.
func sellerFilter(sellerID string) bson.M {
	or := make(bson.A, 0, len(models.SellerIDFields))
	for _, f := range models.SellerIDFields {
		or = append(or, bson.M{f: sellerID})
	}
	return bson.M{"$or": or}
}

// ProductStore reads and writes the 'products' collection.
type ProductStore struct {
	collection *mongo.Collection
}

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{collection: db.Collection(productsCollection)}
}

func (s *ProductStore) InsertProduct(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if _, err := s.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (s *ProductStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

func (s *ProductStore) find(ctx context.Context, filter bson.M) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// ListBySeller returns the seller's products, newest first.
func (s *ProductStore) ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	return s.find(ctx, sellerFilter(sellerID))
}

// Search matches a lowercase query against the stored prefix keywords.
func (s *ProductStore) Search(ctx context.Context, sellerID, query string) ([]models.Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.ListBySeller(ctx, sellerID)
	}
	return s.find(ctx, bson.M{"$and": bson.A{sellerFilter(sellerID), bson.M{"searchKeywords": q}}})
}

// ReplaceProduct overwrites a stored product.
func (s *ProductStore) ReplaceProduct(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ProductStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUpload removes every product created by one bulk batch.
func (s *ProductStore) DeleteByUpload(ctx context.Context, uploadID string) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"uploadId": uploadID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete products of upload %s: %w", uploadID, err)
	}
	return res.DeletedCount, nil
}

// UploadStore reads and writes the 'productUploads' collection.
type UploadStore struct {
	collection *mongo.Collection
}

func NewUploadStore(db *mongo.Database) *UploadStore {
	return &UploadStore{collection: db.Collection(uploadsCollection)}
}

func (s *UploadStore) CreateUpload(ctx context.Context, rec *models.UploadRecord) error {
	if _, err := s.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert upload record: %w", err)
	}
	return nil
}

func (s *UploadStore) UpdateUpload(ctx context.Context, rec *models.UploadRecord) error {
	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec)
	if err != nil {
		return fmt.Errorf("failed to update upload record: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UploadStore) GetUpload(ctx context.Context, id string) (*models.UploadRecord, error) {
	var rec models.UploadRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *UploadStore) DeleteUpload(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUploads returns the seller's batches, newest first.
func (s *UploadStore) ListUploads(ctx context.Context, sellerID string) ([]models.UploadRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"sellerId": sellerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	recs := []models.UploadRecord{}
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// SaleStore reads and writes the 'sales' collection.
type SaleStore struct {
	collection *mongo.Collection
}

func NewSaleStore(db *mongo.Database) *SaleStore {
	return &SaleStore{collection: db.Collection(salesCollection)}
}

func (s *SaleStore) InsertSale(ctx context.Context, sale *models.Sale) error {
	if _, err := s.collection.InsertOne(ctx, sale); err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

func (s *SaleStore) ListSales(ctx context.Context, sellerID string) ([]models.Sale, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"sellerId": sellerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sales := []models.Sale{}
	if err := cursor.All(ctx, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}
