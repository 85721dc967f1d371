package repository

import (
	"context"

	"github.com/opensource-finance/storefront/internal/domain"
)

// ProductRepository adds the catalogue listings.
type ProductRepository struct {
	*Repository[*domain.Product]
}

// GetAllWithCategories returns every product with its categories,
// ordered by product number.
func (r *ProductRepository) GetAllWithCategories(ctx context.Context) ([]*domain.Product, error) {
	return r.Query(true).Include("Categories").OrderBy("product_nr ASC").List(ctx)
}

// GetAllOrderedByName returns every product ordered by product number.
// The order is by number, not by name; callers depend on it.
func (r *ProductRepository) GetAllOrderedByName(ctx context.Context) ([]*domain.Product, error) {
	return r.Query(true).OrderBy("product_nr ASC").List(ctx)
}
