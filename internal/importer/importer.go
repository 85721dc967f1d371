// Package importer seeds the storefront database from CSV exports.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/repository"
)

// Import file names.
const (
	ProductsFile        = "Products.csv"
	OrderItemsFile      = "OrderItems.csv"
	ProductCategoryFile = "ProductCategory.csv"
)

// Options configures an import run.
type Options struct {
	// Dir holds the three import files.
	Dir string

	// Delimiter separates fields; zero means DefaultDelimiter.
	Delimiter rune
}

// Dataset is the entity graph built from the import files.
type Dataset struct {
	Products   []*domain.Product
	Customers  []*domain.Customer
	Orders     []*domain.Order
	OrderItems []*domain.OrderItem
	Categories []*domain.Category
}

// Result summarizes a finished import.
type Result struct {
	Products     int
	Customers    int
	Orders       int
	OrderItems   int
	Categories   int
	RowsAffected int
	Duration     time.Duration

	// Catalogue is every stored product with its categories.
	Catalogue []*domain.Product
}

// Build groups the item rows into customers (by number) and orders (by
// number) and the category rows into categories (by name). The first row
// of a group defines its values.
func Build(products []*domain.Product, items []OrderItemRow, links []ProductCategoryRow) (*Dataset, error) {
	ds := &Dataset{Products: products}

	productsByNr := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		if _, dup := productsByNr[p.ProductNr]; dup {
			return nil, fmt.Errorf("duplicate product %s", p.ProductNr)
		}
		productsByNr[p.ProductNr] = p
	}

	customersByNr := make(map[string]*domain.Customer)
	ordersByNr := make(map[string]*domain.Order)

	for _, row := range items {
		customer := customersByNr[row.CustomerNr]
		if customer == nil {
			customer = &domain.Customer{
				CustomerNr: row.CustomerNr,
				FirstName:  row.FirstName,
				LastName:   row.LastName,
			}
			customersByNr[row.CustomerNr] = customer
			ds.Customers = append(ds.Customers, customer)
		} else if customer.FirstName != row.FirstName || customer.LastName != row.LastName {
			slog.Warn("customer name differs from first occurrence",
				"line", row.Line,
				"customer_nr", row.CustomerNr,
				"name", row.FirstName+" "+row.LastName,
				"kept", customer.FullName(),
			)
		}

		order := ordersByNr[row.OrderNr]
		if order == nil {
			order = &domain.Order{
				OrderNr:   row.OrderNr,
				Date:      row.Date,
				Customer:  customer,
				OrderType: row.OrderType,
			}
			ordersByNr[row.OrderNr] = order
			ds.Orders = append(ds.Orders, order)
		} else if order.Customer != customer {
			return nil, fmt.Errorf("line %d: order %s belongs to customer %s, not %s",
				row.Line, row.OrderNr, order.Customer.CustomerNr, row.CustomerNr)
		}

		product := productsByNr[row.ProductNr]
		if product == nil {
			return nil, fmt.Errorf("line %d: unknown product %s", row.Line, row.ProductNr)
		}

		ds.OrderItems = append(ds.OrderItems, &domain.OrderItem{
			Order:   order,
			Product: product,
			Amount:  row.Amount,
		})
	}

	categoriesByName := make(map[string]*domain.Category)
	for _, row := range links {
		product := productsByNr[row.ProductNr]
		if product == nil {
			return nil, fmt.Errorf("line %d: unknown product %s", row.Line, row.ProductNr)
		}
		category := categoriesByName[row.CategoryName]
		if category == nil {
			category = &domain.Category{CategoryName: row.CategoryName}
			categoriesByName[row.CategoryName] = category
			ds.Categories = append(ds.Categories, category)
		}
		category.Products = append(category.Products, product)
	}

	return ds, nil
}

// Load reads the three import files from opts.Dir and builds the dataset.
func Load(opts Options) (*Dataset, error) {
	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}

	var (
		products []*domain.Product
		items    []OrderItemRow
		links    []ProductCategoryRow
	)
	err := readFile(opts.Dir, ProductsFile, func(r io.Reader) (err error) {
		products, err = ReadProducts(r, delimiter)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = readFile(opts.Dir, OrderItemsFile, func(r io.Reader) (err error) {
		items, err = ReadOrderItems(r, delimiter)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = readFile(opts.Dir, ProductCategoryFile, func(r io.Reader) (err error) {
		links, err = ReadProductCategories(r, delimiter)
		return err
	})
	if err != nil {
		return nil, err
	}

	return Build(products, items, links)
}

// Import recreates the schema and stores the dataset found in opts.Dir
// with a single SaveChanges. Every stored product is logged with its
// categories.
func Import(ctx context.Context, store *repository.Store, bus domain.EventBus, opts Options) (*Result, error) {
	start := time.Now()

	ds, err := Load(opts)
	if err != nil {
		return nil, err
	}

	u, err := repository.NewUnitOfWork(ctx, store, bus)
	if err != nil {
		return nil, err
	}
	defer u.Close()

	if err := u.DeleteDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to delete database: %w", err)
	}
	if err := u.MigrateDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("database recreated")

	if err := u.Products.AddRange(ds.Products...); err != nil {
		return nil, err
	}
	if err := u.Customers.AddRange(ds.Customers...); err != nil {
		return nil, err
	}
	if err := u.Orders.AddRange(ds.Orders...); err != nil {
		return nil, err
	}
	if err := u.OrderItems.AddRange(ds.OrderItems...); err != nil {
		return nil, err
	}
	if err := u.Categories.AddRange(ds.Categories...); err != nil {
		return nil, err
	}

	rows, err := u.SaveChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to save import: %w", err)
	}

	catalogue, err := u.Products.GetAllWithCategories(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("products imported", "count", len(catalogue))
	for _, p := range catalogue {
		names := make([]string, len(p.Categories))
		for i, c := range p.Categories {
			names[i] = c.CategoryName
		}
		slog.Info("product",
			"product_nr", p.ProductNr,
			"name", p.Name,
			"price", p.Price,
			"categories", strings.Join(names, " "),
		)
	}

	return &Result{
		Products:     len(ds.Products),
		Customers:    len(ds.Customers),
		Orders:       len(ds.Orders),
		OrderItems:   len(ds.OrderItems),
		Categories:   len(ds.Categories),
		RowsAffected: rows,
		Duration:     time.Since(start),
		Catalogue:    catalogue,
	}, nil
}

func readFile(dir, name string, read func(io.Reader) error) error {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := read(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
