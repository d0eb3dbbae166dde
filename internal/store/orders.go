package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/models"
)

// pathField holds the logical location of an order. Orders mirrored from
// users/{uid}/orders/{id} keep that path; top-level orders have none.
const pathField = "_path"

// orderQueryFields are the owner fields queried directly, in order.
var orderQueryFields = []string{"sellerid", "sellerID", "sellerId"}

// OrderStore reads orders wherever they were written.
type OrderStore struct {
	collection *mongo.Collection
	log        *zap.Logger
}

func NewOrderStore(db *mongo.Database, log *zap.Logger) *OrderStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderStore{collection: db.Collection(ordersCollection), log: log}
}

func (s *OrderStore) findDocs(ctx context.Context, filter bson.M) ([]map[string]any, error) {
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = map[string]any(d)
	}
	return out, nil
}

// ListBySeller queries each owner field and merges the results. When nothing
// matches, every order is scanned and filtered through ResolveSellerID.
func (s *OrderStore) ListBySeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	seen := map[string]bool{}
	var orders []models.Order

	for _, field := range orderQueryFields {
		docs, err := s.findDocs(ctx, bson.M{field: sellerID})
		if err != nil {
			s.log.Warn("order query failed", zap.String("field", field), zap.Error(err))
			continue
		}
		for _, d := range docs {
			o := DecodeOrder(d)
			if !seen[o.Path] {
				seen[o.Path] = true
				orders = append(orders, o)
			}
		}
	}

	if len(orders) == 0 {
		docs, err := s.findDocs(ctx, bson.M{})
		if err != nil {
			return nil, fmt.Errorf("fallback order scan: %w", err)
		}
		orders = FilterOrdersBySeller(docs, sellerID)
	}

	SortNewestFirst(orders)
	return orders, nil
}

// GetByPath loads users/{uid}/orders/{id} or orders/{id}.
func (s *OrderStore) GetByPath(ctx context.Context, path string) (*models.Order, error) {
	filter, err := pathFilter(path)
	if err != nil {
		return nil, err
	}
	docs, err := s.findDocs(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	o := DecodeOrder(docs[0])
	return &o, nil
}

// UpdateStatus sets the status of an order addressed by path or by id.
func (s *OrderStore) UpdateStatus(ctx context.Context, sellerID, ref, status string) (*models.Order, error) {
	filter, err := pathFilter(ref)
	if err != nil {
		filter = idFilter(ref)
	}
	docs, err := s.findDocs(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	doc := docs[0]
	if models.ResolveSellerID(doc) != sellerID {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": doc["_id"]},
		bson.M{"$set": bson.M{"status": status, "updatedAt": now}}); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	o := DecodeOrder(doc)
	o.Status = status
	o.UpdatedAt = now
	return &o, nil
}

func pathFilter(path string) (bson.M, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 4 && parts[0] == "users" && parts[2] == ordersCollection:
		return bson.M{pathField: strings.Join(parts, "/")}, nil
	case len(parts) == 2 && parts[0] == ordersCollection:
		return idFilter(parts[1]), nil
	}
	return nil, ErrInvalidOrderPath
}

func idFilter(id string) bson.M {
	ids := bson.A{id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		ids = append(ids, oid)
	}
	return bson.M{"_id": bson.M{"$in": ids}}
}

// FilterOrdersBySeller keeps the documents whose resolved owner is sellerID.
func FilterOrdersBySeller(docs []map[string]any, sellerID string) []models.Order {
	var out []models.Order
	for _, d := range docs {
		if models.ResolveSellerID(d) == sellerID {
			out = append(out, DecodeOrder(d))
		}
	}
	return out
}

// SortNewestFirst orders by creation time, undated orders last.
func SortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// DecodeOrder builds the typed view of a free-form order document.
func DecodeOrder(doc map[string]any) models.Order {
	o := models.Order{
		ID:       idString(doc["_id"]),
		SellerID: models.ResolveSellerID(doc),
		Status:   str(doc["status"]),
		Total:    num(doc["total"]),
		Raw:      doc,
	}
	if id := str(doc["id"]); id != "" && o.ID == "" {
		o.ID = id
	}
	o.Path = str(doc[pathField])
	if o.Path == "" {
		o.Path = ordersCollection + "/" + o.ID
	}

	if c, ok := asMap(doc["customer"]); ok {
		o.CustomerName = str(c["name"])
		o.CustomerEmail = str(c["email"])
		o.CustomerPhone = str(c["phone"])
	}

	items, ok := doc["products"]
	if !ok {
		items = doc["items"]
	}
	for _, raw := range asSlice(items) {
		m, ok := asMap(raw)
		if !ok {
			continue
		}
		o.Items = append(o.Items, models.OrderItem{
			ProductID: str(m["productId"]),
			Name:      str(m["name"]),
			SKU:       str(m["sku"]),
			VariantID: str(m["variantId"]),
			Quantity:  int(num(m["quantity"])),
			Price:     num(m["price"]),
		})
	}

	o.CreatedAt = timeOf(doc["createdAt"])
	if o.CreatedAt.IsZero() {
		o.CreatedAt = timeOf(doc["orderDate"])
	}
	o.UpdatedAt = timeOf(doc["updatedAt"])
	return o
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case nil:
		return ""
	}
	return str(v)
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	}
	return 0
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case bson.M:
		return map[string]any(m), true
	case bson.D:
		return map[string]any(m.Map()), true
	}
	return nil, false
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case bson.A:
		return []any(s)
	}
	return nil
}

func timeOf(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0)
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	case int64:
		return time.UnixMilli(t)
	case float64:
		return time.UnixMilli(int64(t))
	}
	return time.Time{}
}

// DecodeOrders decodes several documents at once.
func DecodeOrders(docs ...map[string]any) []models.Order {
	out := make([]models.Order, len(docs))
	for i, d := range docs {
		out[i] = DecodeOrder(d)
	}
	return out
}
