package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/opensource-finance/storefront/internal/domain"
)

// OrderRepository adds order queries and the sales statistic.
type OrderRepository struct {
	*Repository[*domain.Order]
}

// GetAllWithDetails returns every order with its customer and its items
// including their products, newest first.
func (r *OrderRepository) GetAllWithDetails(ctx context.Context) ([]*domain.Order, error) {
	return r.Query(true).
		Include("Customer", "OrderItems.Product").
		OrderBy("order_date DESC").
		List(ctx)
}

// ByCustomerName returns the untracked orders whose customer's last name
// matches the LIKE pattern nameFilter, newest first. An empty filter
// matches every order.
func (r *OrderRepository) ByCustomerName(nameFilter string) *Query[*domain.Order] {
	q := r.Query(true)
	if nameFilter != "" {
		q = q.Where("customer_id IN (SELECT id FROM customers WHERE last_name LIKE ?)", "%"+nameFilter+"%")
	}
	return q.OrderBy("order_date DESC")
}

// GetSummaryPage projects the zero-based page of ByCustomerName into summaries.
func (r *OrderRepository) GetSummaryPage(ctx context.Context, nameFilter string, page, pageSize int) ([]domain.OrderSummary, error) {
	q := r.ByCustomerName(nameFilter).Include("Customer", "OrderItems.Product")
	return GetProjectedPage(ctx, q, page, pageSize, summarize)
}

func summarize(o *domain.Order) domain.OrderSummary {
	s := domain.OrderSummary{ID: o.ID, OrderNr: o.OrderNr, Total: o.Total()}
	if o.Customer != nil {
		s.CustomerName = o.Customer.LastName + " " + o.Customer.FirstName
	}
	return s
}

// GetSalesStatistic aggregates amount times price over all order items.
// The best product is the one with the highest revenue, the lowest id on
// ties. Customers are listed by descending revenue, then by id.
func (r *OrderRepository) GetSalesStatistic(ctx context.Context) (*domain.SalesStatistic, error) {
	if err := r.u.ensureOpen(); err != nil {
		return nil, err
	}
	db, rebind := r.u.db(), r.u.store.rebind

	stat := &domain.SalesStatistic{Customers: []domain.CustomerSales{}}

	err := db.QueryRowContext(ctx, rebind(`
		SELECT COALESCE(SUM(oi.amount * p.price), 0)
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id`)).Scan(&stat.TotalSales)
	if err != nil {
		slog.Error("failed to compute total sales", "error", err)
		return nil, fmt.Errorf("failed to compute total sales: %w", err)
	}

	err = db.QueryRowContext(ctx, rebind(`
		SELECT p.id, p.name, SUM(oi.amount * p.price) AS sales
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		GROUP BY p.id, p.name
		ORDER BY sales DESC, p.id ASC
		LIMIT 1`)).Scan(&stat.BestProductID, &stat.BestProduct, &stat.BestProductSales)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to compute best product", "error", err)
		return nil, fmt.Errorf("failed to compute best product: %w", err)
	}

	rows, err := db.QueryContext(ctx, rebind(`
		SELECT c.id, c.first_name, c.last_name, COUNT(DISTINCT o.id), SUM(oi.amount * p.price) AS sales
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN customers c ON c.id = o.customer_id
		JOIN products p ON p.id = oi.product_id
		GROUP BY c.id, c.first_name, c.last_name
		ORDER BY sales DESC, c.id ASC`))
	if err != nil {
		slog.Error("failed to compute customer sales", "error", err)
		return nil, fmt.Errorf("failed to compute customer sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs domain.CustomerSales
		var first, last string
		if err := rows.Scan(&cs.CustomerID, &first, &last, &cs.NumberOfOrders, &cs.TotalSales); err != nil {
			return nil, fmt.Errorf("failed to scan customer sales: %w", err)
		}
		cs.CustomerName = first + " " + last
		stat.Customers = append(stat.Customers, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read customer sales: %w", err)
	}

	spanFromContext(ctx).SetAttributes(
		attribute.Float64("storefront.total_sales", stat.TotalSales),
		attribute.Int("storefront.customers", len(stat.Customers)),
	)
	return stat, nil
}
