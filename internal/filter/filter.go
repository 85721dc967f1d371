// Package filter compiles CEL expressions into repository predicates.
package filter

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/storefront/internal/domain"
)

// MaxExpressionLength bounds user supplied expressions.
const MaxExpressionLength = 512

// Engine compiles and caches filter expressions. It is safe for concurrent use.
type Engine struct {
	mu         sync.RWMutex
	productEnv *cel.Env
	orderEnv   *cel.Env
	compiled   map[string]cel.Program
	maxCached  int
}

// NewEngine creates a filter engine caching up to maxCached programs.
func NewEngine(maxCached int) (*Engine, error) {
	if maxCached <= 0 {
		maxCached = 256
	}

	// Product variables
	productEnv, err := cel.NewEnv(
		cel.Variable("product_nr", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("categories", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	// Order variables
	orderEnv, err := cel.NewEnv(
		cel.Variable("order_nr", cel.StringType),
		cel.Variable("order_type", cel.StringType),
		cel.Variable("customer_id", cel.IntType),
		cel.Variable("date", cel.TimestampType),
		cel.Variable("total", cel.DoubleType),
		cel.Variable("items", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		productEnv: productEnv,
		orderEnv:   orderEnv,
		compiled:   make(map[string]cel.Program),
		maxCached:  maxCached,
	}, nil
}

// Product compiles expr into a product predicate, e.g.
// `price < 5.0 && "Office" in categories`. An empty expr matches everything.
func (e *Engine) Product(expr string) (func(*domain.Product) bool, error) {
	if expr == "" {
		return nil, nil
	}
	program, err := e.program("product", e.productEnv, expr)
	if err != nil {
		return nil, err
	}

	return func(p *domain.Product) bool {
		categories := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			categories = append(categories, c.CategoryName)
		}
		return eval(program, expr, map[string]any{
			"product_nr": p.ProductNr,
			"name":       p.Name,
			"price":      p.Price,
			"categories": categories,
		})
	}, nil
}

// Order compiles expr into an order predicate, e.g. `order_type == "Express"`.
// total and items are only meaningful when the order items were loaded.
func (e *Engine) Order(expr string) (func(*domain.Order) bool, error) {
	if expr == "" {
		return nil, nil
	}
	program, err := e.program("order", e.orderEnv, expr)
	if err != nil {
		return nil, err
	}

	return func(o *domain.Order) bool {
		return eval(program, expr, map[string]any{
			"order_nr":    o.OrderNr,
			"order_type":  string(o.OrderType),
			"customer_id": o.CustomerID,
			"date":        o.Date.UTC(),
			"total":       o.Total(),
			"items":       int64(len(o.OrderItems)),
		})
	}, nil
}

// CachedCount returns the number of compiled programs held.
func (e *Engine) CachedCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

func (e *Engine) program(kind string, env *cel.Env, expr string) (cel.Program, error) {
	if len(expr) > MaxExpressionLength {
		return nil, fmt.Errorf("filter expression exceeds %d characters", MaxExpressionLength)
	}
	key := kind + ":" + expr

	e.mu.RLock()
	program, ok := e.compiled[key]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter must return bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for filter: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.compiled) >= e.maxCached {
		e.compiled = make(map[string]cel.Program)
	}
	e.compiled[key] = program
	return program, nil
}

// eval treats evaluation errors as a non-match.
func eval(program cel.Program, expr string, activation map[string]any) bool {
	out, _, err := program.Eval(activation)
	if err != nil {
		slog.Debug("filter evaluation failed", "expression", expr, "error", err)
		return false
	}
	b, ok := out.(types.Bool)
	return ok && bool(b)
}
