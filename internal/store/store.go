// Package store persists sellers and taxonomy in MySQL and products, upload
// batches, orders and sales in MongoDB.
package store

import "errors"

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")

	ErrInvalidOrderPath = errors.New("order path must be users/<uid>/orders/<id> or orders/<id>")
)
