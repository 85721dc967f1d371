package repository

import (
	"context"
	"fmt"

	"github.com/opensource-finance/storefront/internal/domain"
)

// Insert ranks: principals before dependents.
const (
	rankPrincipal = iota
	rankOrder
	rankOrderItem
)

const productCategoriesTable = "product_categories"

var (
	customerMapping  *mapping[*domain.Customer]
	productMapping   *mapping[*domain.Product]
	categoryMapping  *mapping[*domain.Category]
	orderMapping     *mapping[*domain.Order]
	orderItemMapping *mapping[*domain.OrderItem]
)

func init() {
	customerMapping = newMapping("Customer", "customers", rankPrincipal,
		[]string{"customer_nr", "last_name", "first_name"},
		func() *domain.Customer { return &domain.Customer{} },
		func(c *domain.Customer) []any { return []any{&c.CustomerNr, &c.LastName, &c.FirstName} },
		func(c *domain.Customer) []any { return []any{c.CustomerNr, c.LastName, c.FirstName} },
	)
	// Saved principals hand their key to collection members without a navigation.
	customerMapping.prepare = func(e domain.Entity) {
		c := e.(*domain.Customer)
		if c.ID == 0 {
			return
		}
		for _, o := range c.Orders {
			if o != nil && o.Customer == nil {
				o.CustomerID = c.ID
			}
		}
	}
	customerMapping.related = func(e domain.Entity) []domain.Entity {
		c := e.(*domain.Customer)
		out := make([]domain.Entity, 0, len(c.Orders))
		for _, o := range c.Orders {
			if o != nil {
				out = append(out, o)
			}
		}
		return out
	}

	productMapping = newMapping("Product", "products", rankPrincipal,
		[]string{"product_nr", "name", "price"},
		func() *domain.Product { return &domain.Product{} },
		func(p *domain.Product) []any { return []any{&p.ProductNr, &p.Name, &p.Price} },
		func(p *domain.Product) []any { return []any{p.ProductNr, p.Name, p.Price} },
	)
	productMapping.related = func(e domain.Entity) []domain.Entity {
		p := e.(*domain.Product)
		out := make([]domain.Entity, 0, len(p.Categories))
		for _, c := range p.Categories {
			if c != nil {
				out = append(out, c)
			}
		}
		return out
	}
	productMapping.links = func(e domain.Entity) []link {
		p := e.(*domain.Product)
		var out []link
		for _, c := range p.Categories {
			if c != nil {
				out = append(out, productCategoryLink(p.ID, c.ID))
			}
		}
		return out
	}

	categoryMapping = newMapping("Category", "categories", rankPrincipal,
		[]string{"category_name"},
		func() *domain.Category { return &domain.Category{} },
		func(c *domain.Category) []any { return []any{&c.CategoryName} },
		func(c *domain.Category) []any { return []any{c.CategoryName} },
	)
	categoryMapping.related = func(e domain.Entity) []domain.Entity {
		c := e.(*domain.Category)
		out := make([]domain.Entity, 0, len(c.Products))
		for _, p := range c.Products {
			if p != nil {
				out = append(out, p)
			}
		}
		return out
	}
	categoryMapping.links = func(e domain.Entity) []link {
		c := e.(*domain.Category)
		var out []link
		for _, p := range c.Products {
			if p != nil {
				out = append(out, productCategoryLink(p.ID, c.ID))
			}
		}
		return out
	}

	orderMapping = newMapping("Order", "orders", rankOrder,
		[]string{"order_nr", "order_date", "customer_id", "order_type"},
		func() *domain.Order { return &domain.Order{} },
		func(o *domain.Order) []any {
			return []any{&o.OrderNr, &o.Date, &o.CustomerID, (*string)(&o.OrderType)}
		},
		func(o *domain.Order) []any {
			return []any{o.OrderNr, o.Date, o.CustomerID, string(o.OrderType)}
		},
	)
	// A set navigation wins over the foreign key.
	orderMapping.prepare = func(e domain.Entity) {
		o := e.(*domain.Order)
		if o.Customer != nil {
			o.CustomerID = o.Customer.ID
		}
		if o.ID == 0 {
			return
		}
		for _, item := range o.OrderItems {
			if item != nil && item.Order == nil {
				item.OrderID = o.ID
			}
		}
	}
	orderMapping.related = func(e domain.Entity) []domain.Entity {
		o := e.(*domain.Order)
		out := make([]domain.Entity, 0, len(o.OrderItems)+1)
		if o.Customer != nil {
			out = append(out, o.Customer)
		}
		for _, item := range o.OrderItems {
			if item != nil {
				out = append(out, item)
			}
		}
		return out
	}

	orderItemMapping = newMapping("OrderItem", "order_items", rankOrderItem,
		[]string{"order_id", "product_id", "amount"},
		func() *domain.OrderItem { return &domain.OrderItem{} },
		func(i *domain.OrderItem) []any { return []any{&i.OrderID, &i.ProductID, &i.Amount} },
		func(i *domain.OrderItem) []any { return []any{i.OrderID, i.ProductID, int64(i.Amount)} },
	)
	orderItemMapping.prepare = func(e domain.Entity) {
		i := e.(*domain.OrderItem)
		if i.Order != nil {
			i.OrderID = i.Order.ID
		}
		if i.Product != nil {
			i.ProductID = i.Product.ID
		}
	}
	orderItemMapping.related = func(e domain.Entity) []domain.Entity {
		i := e.(*domain.OrderItem)
		var out []domain.Entity
		if i.Order != nil {
			out = append(out, i.Order)
		}
		if i.Product != nil {
			out = append(out, i.Product)
		}
		return out
	}

	registerIncludes()
}

func productCategoryLink(productID, categoryID int64) link {
	return link{
		table:   productCategoriesTable,
		left:    "product_id",
		right:   "category_id",
		leftID:  productID,
		rightID: categoryID,
	}
}

func registerIncludes() {
	customerMapping.includes["Orders"] = func(ctx context.Context, u *UnitOfWork, items []*domain.Customer, tracking bool) error {
		orders, err := fetchIn(ctx, u, orderMapping, "customer_id", distinctIDs(items, func(c *domain.Customer) int64 { return c.ID }), tracking)
		if err != nil {
			return err
		}
		byCustomer := make(map[int64][]*domain.Order)
		for _, o := range orders {
			byCustomer[o.CustomerID] = append(byCustomer[o.CustomerID], o)
		}
		for _, c := range items {
			c.Orders = append([]*domain.Order{}, byCustomer[c.ID]...)
		}
		return nil
	}

	orderMapping.includes["Customer"] = func(ctx context.Context, u *UnitOfWork, items []*domain.Order, tracking bool) error {
		customers, err := fetchIn(ctx, u, customerMapping, "id", distinctIDs(items, func(o *domain.Order) int64 { return o.CustomerID }), tracking)
		if err != nil {
			return err
		}
		byID := indexByID(customers)
		for _, o := range items {
			o.Customer = byID[o.CustomerID]
		}
		return nil
	}
	orderMapping.includes["OrderItems"] = func(ctx context.Context, u *UnitOfWork, items []*domain.Order, tracking bool) error {
		orderItems, err := fetchIn(ctx, u, orderItemMapping, "order_id", distinctIDs(items, func(o *domain.Order) int64 { return o.ID }), tracking)
		if err != nil {
			return err
		}
		byOrder := make(map[int64][]*domain.OrderItem)
		for _, item := range orderItems {
			byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
		}
		for _, o := range items {
			o.OrderItems = append([]*domain.OrderItem{}, byOrder[o.ID]...)
		}
		return nil
	}
	orderMapping.includes["OrderItems.Product"] = func(ctx context.Context, u *UnitOfWork, items []*domain.Order, tracking bool) error {
		var orderItems []*domain.OrderItem
		for _, o := range items {
			orderItems = append(orderItems, o.OrderItems...)
		}
		return loadItemProducts(ctx, u, orderItems, tracking)
	}

	orderItemMapping.includes["Product"] = loadItemProducts
	orderItemMapping.includes["Order"] = func(ctx context.Context, u *UnitOfWork, items []*domain.OrderItem, tracking bool) error {
		orders, err := fetchIn(ctx, u, orderMapping, "id", distinctIDs(items, func(i *domain.OrderItem) int64 { return i.OrderID }), tracking)
		if err != nil {
			return err
		}
		byID := indexByID(orders)
		for _, i := range items {
			i.Order = byID[i.OrderID]
		}
		return nil
	}

	productMapping.includes["Categories"] = func(ctx context.Context, u *UnitOfWork, items []*domain.Product, tracking bool) error {
		pairs, err := fetchLinks(ctx, u, "product_id", "category_id", distinctIDs(items, func(p *domain.Product) int64 { return p.ID }))
		if err != nil {
			return err
		}
		categories, err := fetchIn(ctx, u, categoryMapping, "id", distinctIDs(pairs, func(p [2]int64) int64 { return p[1] }), tracking)
		if err != nil {
			return err
		}
		byID := indexByID(categories)
		byProduct := make(map[int64][]*domain.Category)
		for _, p := range pairs {
			if c := byID[p[1]]; c != nil {
				byProduct[p[0]] = append(byProduct[p[0]], c)
			}
		}
		for _, p := range items {
			p.Categories = append([]*domain.Category{}, byProduct[p.ID]...)
		}
		return nil
	}

	categoryMapping.includes["Products"] = func(ctx context.Context, u *UnitOfWork, items []*domain.Category, tracking bool) error {
		pairs, err := fetchLinks(ctx, u, "category_id", "product_id", distinctIDs(items, func(c *domain.Category) int64 { return c.ID }))
		if err != nil {
			return err
		}
		products, err := fetchIn(ctx, u, productMapping, "id", distinctIDs(pairs, func(p [2]int64) int64 { return p[1] }), tracking)
		if err != nil {
			return err
		}
		byID := indexByID(products)
		byCategory := make(map[int64][]*domain.Product)
		for _, p := range pairs {
			if prod := byID[p[1]]; prod != nil {
				byCategory[p[0]] = append(byCategory[p[0]], prod)
			}
		}
		for _, c := range items {
			c.Products = append([]*domain.Product{}, byCategory[c.ID]...)
		}
		return nil
	}
}

func loadItemProducts(ctx context.Context, u *UnitOfWork, items []*domain.OrderItem, tracking bool) error {
	products, err := fetchIn(ctx, u, productMapping, "id", distinctIDs(items, func(i *domain.OrderItem) int64 { return i.ProductID }), tracking)
	if err != nil {
		return err
	}
	byID := indexByID(products)
	for _, i := range items {
		i.Product = byID[i.ProductID]
	}
	return nil
}

// fetchIn loads the rows of m whose column matches one of ids, ordered by id.
func fetchIn[T domain.Entity](ctx context.Context, u *UnitOfWork, m *mapping[T], column string, ids []any, tracking bool) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + m.selectList() + " FROM " + m.table.table +
		" WHERE " + column + " IN (" + placeholders(len(ids)) + ") ORDER BY id ASC"
	items, err := fetch(ctx, u, m, query, ids, tracking)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", m.name, err)
	}
	return items, nil
}

// fetchLinks returns (from, to) pairs of the product/category join table.
func fetchLinks(ctx context.Context, u *UnitOfWork, from, to string, ids []any) ([][2]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + from + ", " + to + " FROM " + productCategoriesTable +
		" WHERE " + from + " IN (" + placeholders(len(ids)) + ") ORDER BY " + from + ", " + to

	rows, err := u.db().QueryContext(ctx, u.store.rebind(query), ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", productCategoriesTable, err)
	}
	defer rows.Close()

	var pairs [][2]int64
	for rows.Next() {
		var p [2]int64
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func distinctIDs[E any](items []E, key func(E) int64) []any {
	seen := make(map[int64]bool, len(items))
	var ids []any
	for _, item := range items {
		id := key(item)
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func indexByID[T domain.Entity](items []T) map[int64]T {
	byID := make(map[int64]T, len(items))
	for _, item := range items {
		byID[item.GetID()] = item
	}
	return byID
}
