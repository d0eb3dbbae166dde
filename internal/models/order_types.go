package models

import (
	"time"
)

// Order statuses the console counts separately.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatus reports whether a status may be written by a seller.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is the typed view of an order document. Orders live either in the
// top-level 'orders' collection or nested under users/{uid}/orders/{id};
// Path records which one.
type Order struct {
	ID            string         `json:"id"`
	Path          string         `json:"path"`
	SellerID      string         `json:"sellerId"`
	Status        string         `json:"status"`
	CustomerName  string         `json:"customerName,omitempty"`
	CustomerEmail string         `json:"customerEmail,omitempty"`
	CustomerPhone string         `json:"customerPhone,omitempty"`
	Items         []OrderItem    `json:"items"`
	Total         float64        `json:"total"`
	Raw           map[string]any `json:"raw,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string  `json:"productId,omitempty"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku,omitempty"`
	VariantID string  `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderStatusCounts summarizes a seller's orders.
type OrderStatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Delivered  int `json:"delivered"`
}

// CountOrderStatuses tallies the statuses the dashboard shows.
func CountOrderStatuses(orders []Order) OrderStatusCounts {
	var c OrderStatusCounts
	for _, o := range orders {
		c.Total++
		switch o.Status {
		case OrderStatusPending:
			c.Pending++
		case OrderStatusProcessing:
			c.Processing++
		case OrderStatusDelivered:
			c.Delivered++
		}
	}
	return c
}

// Sale is the document stored in the 'sales' collection when a seller
// records an offline sale.
type Sale struct {
	ID            string    `json:"id" bson:"_id"`
	ProductID     string    `json:"productId" bson:"productId"`
	ProductName   string    `json:"productName" bson:"productName"`
	SellerID      string    `json:"sellerId" bson:"sellerId"`
	Quantity      int       `json:"quantity" bson:"quantity"`
	UnitPrice     float64   `json:"unitPrice" bson:"unitPrice"`
	TotalAmount   float64   `json:"totalAmount" bson:"totalAmount"`
	CustomerName  string    `json:"customerName" bson:"customerName"`
	CustomerPhone string    `json:"customerPhone" bson:"customerPhone"`
	PaymentMethod string    `json:"paymentMethod" bson:"paymentMethod"`
	Notes         string    `json:"notes" bson:"notes"`
	Status        string    `json:"status" bson:"status"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}
