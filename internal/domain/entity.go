// Package domain defines the entities, contracts and configuration of the storefront.
package domain

import (
	"context"
	"time"

	"github.com/opensource-finance/storefront/internal/validation"
)

// Entity is implemented by every persisted record.
type Entity interface {
	GetID() int64
	SetID(id int64)
	GetRowVersion() string
	SetRowVersion(version string)
}

// FieldValidator is implemented by entities with stateless field rules.
type FieldValidator interface {
	Validate() []*validation.Error
}

// DatabaseValidator is implemented by entities whose validity depends on
// other persisted data. The unit of work passes itself so the entity can
// query through its repositories.
type DatabaseValidator interface {
	ValidateDatabase(ctx context.Context, uow UnitOfWork) (*validation.Error, error)
}

// EntityObject carries the identity key and the concurrency token.
type EntityObject struct {
	ID         int64  `json:"id"`
	RowVersion string `json:"rowVersion,omitempty"`
}

func (e *EntityObject) GetID() int64                 { return e.ID }
func (e *EntityObject) SetID(id int64)               { e.ID = id }
func (e *EntityObject) GetRowVersion() string        { return e.RowVersion }
func (e *EntityObject) SetRowVersion(version string) { e.RowVersion = version }

// Customer places orders.
type Customer struct {
	EntityObject
	CustomerNr string   `json:"customerNr"`
	LastName   string   `json:"lastName"`
	FirstName  string   `json:"firstName"`
	Orders     []*Order `json:"orders,omitempty"`
}

// FullName returns "First Last".
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Validate checks the customer number and the name fields.
func (c *Customer) Validate() []*validation.Error {
	var v validation.Collector
	v.Check(validation.Required("CustomerNr", c.CustomerNr))
	v.Check(validation.CustomerNrChecksum("CustomerNr", c.CustomerNr))
	v.Check(validation.MaxLength("LastName", c.LastName, 20))
	v.Check(validation.MaxLength("FirstName", c.FirstName, 20))
	v.Check(validation.NamesLength("FirstName", c.FirstName, "LastName", c.LastName, 5))
	return v.Failures()
}

// ValidateDatabase rejects a name pair that another customer already uses.
func (c *Customer) ValidateDatabase(ctx context.Context, uow UnitOfWork) (*validation.Error, error) {
	customers := uow.CustomerRepository()
	unique, err := customers.IsFullNameUniqueExcept(ctx, c.FirstName, c.LastName, c.ID)
	if err != nil {
		return nil, err
	}
	if !unique || customers.HasStagedFullName(c) {
		return validation.NewError("Customer Name ist nicht einzigartig", "FirstName", "LastName"), nil
	}
	return nil, nil
}

// Product is an article that can be ordered.
type Product struct {
	EntityObject
	ProductNr  string      `json:"productNr"`
	Name       string      `json:"name"`
	Price      float64     `json:"price"`
	Categories []*Category `json:"categories,omitempty"`
}

func (p *Product) Validate() []*validation.Error {
	var v validation.Collector
	v.Check(validation.Required("ProductNr", p.ProductNr))
	v.Check(validation.MaxLength("Name", p.Name, 20))
	return v.Failures()
}

// Category groups products.
type Category struct {
	EntityObject
	CategoryName string     `json:"categoryName"`
	Products     []*Product `json:"products,omitempty"`
}

func (c *Category) Validate() []*validation.Error {
	var v validation.Collector
	v.Check(validation.Required("CategoryName", c.CategoryName))
	return v.Failures()
}

// OrderType classifies an order.
type OrderType string

const (
	OrderTypeStandard  OrderType = "Standard"
	OrderTypeExpress   OrderType = "Express"
	OrderTypeWholesale OrderType = "Wholesale"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeStandard, OrderTypeExpress, OrderTypeWholesale:
		return true
	}
	return false
}

// Order is placed by a customer and owns its items.
type Order struct {
	EntityObject
	OrderNr    string       `json:"orderNr"`
	Date       time.Time    `json:"date"`
	CustomerID int64        `json:"customerId"`
	Customer   *Customer    `json:"customer,omitempty"`
	OrderType  OrderType    `json:"orderType"`
	OrderItems []*OrderItem `json:"orderItems,omitempty"`
}

func (o *Order) Validate() []*validation.Error {
	var v validation.Collector
	v.Check(validation.Required("OrderNr", o.OrderNr))
	if o.CustomerID == 0 && o.Customer == nil {
		v.Check(validation.NewError("The Customer field is required.", "CustomerId"))
	}
	if !o.OrderType.Valid() {
		v.Check(validation.NewError("Unknown order type "+string(o.OrderType), "OrderType"))
	}
	return v.Failures()
}

// Total returns the sum of price times amount over the loaded items.
// Items without a loaded product contribute nothing.
func (o *Order) Total() float64 {
	var total float64
	for _, item := range o.OrderItems {
		if item.Product != nil {
			total += item.Product.Price * float64(item.Amount)
		}
	}
	return total
}

// OrderItem is one product line of an order.
type OrderItem struct {
	EntityObject
	OrderID   int64    `json:"orderId"`
	Order     *Order   `json:"order,omitempty"`
	ProductID int64    `json:"productId"`
	Product   *Product `json:"product,omitempty"`
	Amount    int      `json:"amount"`
}

func (i *OrderItem) Validate() []*validation.Error {
	var v validation.Collector
	if i.OrderID == 0 && i.Order == nil {
		v.Check(validation.NewError("The Order field is required.", "OrderId"))
	}
	if i.ProductID == 0 && i.Product == nil {
		v.Check(validation.NewError("The Product field is required.", "ProductId"))
	}
	return v.Failures()
}
