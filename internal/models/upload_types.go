package models

import "time"

// Upload record statuses.
const (
	UploadStatusProcessing = "processing"
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
)

// FileSummary describes one spreadsheet of a bulk import batch.
type FileSummary struct {
	Name     string `json:"name" bson:"name"`
	Size     int64  `json:"size" bson:"size"`
	URL      string `json:"url,omitempty" bson:"url,omitempty"`
	Path     string `json:"path,omitempty" bson:"path,omitempty"`
	Rows     int    `json:"rows" bson:"rows"`
	Products int    `json:"products" bson:"products"`
	Error    string `json:"error,omitempty" bson:"error,omitempty"`
}

// UploadRecord is the document stored in 'productUploads' for each batch.
type UploadRecord struct {
	ID            string        `json:"id" bson:"_id"`
	SellerID      string        `json:"sellerId" bson:"sellerId"`
	TotalProducts int           `json:"totalProducts" bson:"totalProducts"`
	TotalVariants int           `json:"totalVariants" bson:"totalVariants"`
	Files         []FileSummary `json:"files" bson:"files"`
	Categories    []string      `json:"categories" bson:"categories"`
	Brands        []string      `json:"brands" bson:"brands"`
	Warnings      []string      `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Status        string        `json:"status" bson:"status"`
	Error         string        `json:"error,omitempty" bson:"error,omitempty"`
	UploadedAt    time.Time     `json:"uploadedAt" bson:"uploadedAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}
