package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/01moynul/seller-console/internal/models"
)

// CategoryNode is a category with its subcategories.
type CategoryNode struct {
	models.Category
	SubCategories []models.SubCategory `json:"subCategories"`
}

// BuildCategoryTree attaches each subcategory to its category. Subcategories
// of unknown categories are dropped.
func BuildCategoryTree(categories []models.Category, subs []models.SubCategory) []CategoryNode {
	index := make(map[string]int, len(categories))
	tree := make([]CategoryNode, len(categories))
	for i, cat := range categories {
		tree[i] = CategoryNode{Category: cat, SubCategories: []models.SubCategory{}}
		index[cat.ID] = i
	}
	for _, s := range subs {
		if i, ok := index[s.CategoryID]; ok {
			tree[i].SubCategories = append(tree[i].SubCategories, s)
		}
	}
	return tree
}

// --- Category Handlers ---

// GetAllCategories handles GET /v1/categories
// Categories and subcategories are fetched concurrently. ?categoryId narrows
// the subcategory list.
func (h *Handlers) GetAllCategories(c *gin.Context) {
	var (
		categories []models.Category
		subs       []models.SubCategory
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		categories, err = h.Taxonomy.ListCategories(ctx)
		return err
	})
	g.Go(func() (err error) {
		subs, err = h.Taxonomy.ListSubCategories(ctx, c.Query("categoryId"))
		return err
	})
	if err := g.Wait(); err != nil {
		h.serverError(c, "Failed to load categories", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories":    BuildCategoryTree(categories, subs),
		"subCategories": subs,
	})
}
