package repository

import (
	"context"

	"github.com/opensource-finance/storefront/internal/domain"
)

// OrderItemRepository adds order-scoped item queries.
type OrderItemRepository struct {
	*Repository[*domain.OrderItem]
}

// GetByOrderID returns the items of one order with their products,
// ordered by product name.
func (r *OrderItemRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	return r.Query(true).
		Include("Product").
		Where("order_id = ?", orderID).
		OrderBy("(SELECT p.name FROM products p WHERE p.id = order_items.product_id) ASC").
		List(ctx)
}

// Insert stages a new item.
func (r *OrderItemRepository) Insert(item *domain.OrderItem) (*Entry, error) {
	return r.Add(item)
}

// DeleteItem stages an item for deletion.
func (r *OrderItemRepository) DeleteItem(item *domain.OrderItem) error {
	return r.Remove(item)
}

// DeleteByID stages the item with the given id for deletion.
// A missing item is not an error.
func (r *OrderItemRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.Delete(ctx, id)
	return err
}
