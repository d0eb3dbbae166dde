package models

import (
	"time"
)

// --- Domain Models ---

type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SubCategory keeps the historical 'subcategory' column as its display name.
type SubCategory struct {
	ID         string    `json:"id" db:"id"`
	CategoryID string    `json:"categoryId" db:"category_id"`
	Name       string    `json:"name" db:"subcategory"`
	Slug       string    `json:"slug" db:"slug"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type Brand struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
