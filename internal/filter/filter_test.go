package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/storefront/internal/domain"
)

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(0)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if engine.CachedCount() != 0 {
		t.Errorf("expected 0 programs, got %d", engine.CachedCount())
	}
}

func TestProductFilter(t *testing.T) {
	engine, _ := NewEngine(10)

	pen := &domain.Product{ProductNr: "P-1", Name: "Pen", Price: 1.5,
		Categories: []*domain.Category{{CategoryName: "Office"}}}
	desk := &domain.Product{ProductNr: "P-2", Name: "Desk", Price: 250}

	tests := []struct {
		expr      string
		pen, desk bool
	}{
		{`price < 10.0`, true, false},
		{`"Office" in categories`, true, false},
		{`name.startsWith("D")`, false, true},
		{`product_nr == "P-2" || price < 2.0`, true, true},
		{`size(categories) == 0`, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			pred, err := engine.Product(tc.expr)
			if err != nil {
				t.Fatalf("failed to compile %q: %v", tc.expr, err)
			}
			if got := pred(pen); got != tc.pen {
				t.Errorf("pen: expected %v, got %v", tc.pen, got)
			}
			if got := pred(desk); got != tc.desk {
				t.Errorf("desk: expected %v, got %v", tc.desk, got)
			}
		})
	}
}

func TestEmptyFilterMatchesAll(t *testing.T) {
	engine, _ := NewEngine(10)
	pred, err := engine.Product("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred != nil {
		t.Error("expected nil predicate for empty expression")
	}
}

func TestInvalidFilters(t *testing.T) {
	engine, _ := NewEngine(10)

	cases := map[string]string{
		"syntax":       "this is not valid CEL !!!",
		"non-bool":     "price * 2.0",
		"unknown var":  "weight > 1.0",
		"too long":     "name == \"" + strings.Repeat("x", MaxExpressionLength) + "\"",
		"wrong entity": "order_type == \"Express\"",
	}
	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := engine.Product(expr); err == nil {
				t.Errorf("expected error for %q", expr)
			}
		})
	}
}

func TestOrderFilter(t *testing.T) {
	engine, _ := NewEngine(10)

	order := &domain.Order{
		OrderNr:    "O-7",
		OrderType:  domain.OrderTypeExpress,
		CustomerID: 3,
		Date:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		OrderItems: []*domain.OrderItem{
			{Amount: 2, Product: &domain.Product{Price: 5}},
		},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`order_type == "Express"`, true},
		{`customer_id == 3 && total == 10.0`, true},
		{`items > 1`, false},
		{`date > timestamp("2024-01-01T00:00:00Z")`, true},
	}
	for _, tc := range tests {
		pred, err := engine.Order(tc.expr)
		if err != nil {
			t.Fatalf("failed to compile %q: %v", tc.expr, err)
		}
		if got := pred(order); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.expr, tc.want, got)
		}
	}
}

func TestProgramCache(t *testing.T) {
	engine, _ := NewEngine(2)

	for _, expr := range []string{"price > 1.0", "price > 1.0", "price > 2.0"} {
		if _, err := engine.Product(expr); err != nil {
			t.Fatalf("compile failed: %v", err)
		}
	}
	if engine.CachedCount() != 2 {
		t.Errorf("expected 2 cached programs, got %d", engine.CachedCount())
	}

	// A full cache is reset before the next insert.
	if _, err := engine.Product("price > 3.0"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if engine.CachedCount() != 1 {
		t.Errorf("expected cache reset to 1 program, got %d", engine.CachedCount())
	}
}
