package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"

	"github.com/01moynul/seller-console/internal/models"
)

// TaxonomyStore reads categories and subcategories and maintains brands.
type TaxonomyStore struct {
	DB *sqlx.DB
}

func NewTaxonomyStore(db *sqlx.DB) *TaxonomyStore {
	return &TaxonomyStore{DB: db}
}

func (s *TaxonomyStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.DB.SelectContext(ctx, &categories,
		"SELECT id, name, slug, created_at FROM categories ORDER BY name ASC")
	return categories, err
}

// ListSubCategories returns every subcategory, or those of one category.
func (s *TaxonomyStore) ListSubCategories(ctx context.Context, categoryID string) ([]models.SubCategory, error) {
	subs := []models.SubCategory{}
	query := "SELECT id, category_id, subcategory, slug, created_at FROM subcategories"
	var args []any
	if categoryID != "" {
		query += " WHERE category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY subcategory ASC"
	err := s.DB.SelectContext(ctx, &subs, query, args...)
	return subs, err
}

func (s *TaxonomyStore) names(ctx context.Context, query string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID   string `db:"id"`
		Name string `db:"name"`
	}
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.Name != "" {
			out[r.ID] = r.Name
		}
	}
	return out, nil
}

// CategoryNames maps category ids to names in one query.
func (s *TaxonomyStore) CategoryNames(ctx context.Context, ids []string) (map[string]string, error) {
	return s.names(ctx, "SELECT id, name FROM categories WHERE id IN (?)", ids)
}

// SubCategoryNames maps subcategory ids to their display names.
func (s *TaxonomyStore) SubCategoryNames(ctx context.Context, ids []string) (map[string]string, error) {
	return s.names(ctx, "SELECT id, subcategory AS name FROM subcategories WHERE id IN (?)", ids)
}

func (s *TaxonomyStore) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands := []models.Brand{}
	err := s.DB.SelectContext(ctx, &brands, "SELECT id, name, slug, created_at FROM brands ORDER BY name ASC")
	return brands, err
}

// EnsureBrand returns the brand with the name's slug, creating it if needed.
func (s *TaxonomyStore) EnsureBrand(ctx context.Context, name string) (*models.Brand, error) {
	sl := slug.Make(name)
	if sl == "" {
		return nil, fmt.Errorf("brand name %q has no usable characters", name)
	}

	if _, err := s.DB.ExecContext(ctx,
		"INSERT IGNORE INTO brands (name, slug, created_at) VALUES (?, ?, ?)",
		name, sl, time.Now()); err != nil {
		return nil, fmt.Errorf("insert brand: %w", err)
	}

	var b models.Brand
	err := s.DB.GetContext(ctx, &b, "SELECT id, name, slug, created_at FROM brands WHERE slug = ?", sl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
