package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/storefront/internal/bus"
	"github.com/opensource-finance/storefront/internal/cache"
	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/filter"
	"github.com/opensource-finance/storefront/internal/repository"
	"github.com/opensource-finance/storefront/internal/stats"
	"github.com/opensource-finance/storefront/internal/validation"
)

type testFixture struct {
	server     *Server
	ann, bob   *domain.Customer
	pen, paper *domain.Product
	o1, o2     *domain.Order
}

// createTestServer creates a server on a seeded temp SQLite database:
// O-1 (Ann) pen x3 and paper x4, O-2 (Bob) paper x10.
func createTestServer(t *testing.T, opts ...func(*domain.RepositoryConfig)) *testFixture {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() {
		os.Remove(tmpPath)
		os.Remove(tmpPath + "-wal")
		os.Remove(tmpPath + "-shm")
	})

	repoCfg := domain.RepositoryConfig{Driver: "sqlite", SQLitePath: tmpPath}
	for _, opt := range opts {
		opt(&repoCfg)
	}
	store, err := repository.Open(repoCfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	f := &testFixture{
		ann:   &domain.Customer{CustomerNr: "1111111111", FirstName: "Ann", LastName: "Smith"},
		bob:   &domain.Customer{CustomerNr: "5500000000", FirstName: "Bob", LastName: "Jones"},
		pen:   &domain.Product{ProductNr: "P-001", Name: "Pen", Price: 10},
		paper: &domain.Product{ProductNr: "P-002", Name: "Paper", Price: 2.5},
	}
	f.pen.Categories = []*domain.Category{{CategoryName: "Office"}}
	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f.o1 = &domain.Order{OrderNr: "O-1", Date: date, Customer: f.ann, OrderType: domain.OrderTypeStandard}
	f.o2 = &domain.Order{OrderNr: "O-2", Date: date.Add(time.Hour), Customer: f.bob, OrderType: domain.OrderTypeExpress}

	ctx := context.Background()
	u, err := repository.NewUnitOfWork(ctx, store, nil)
	if err != nil {
		t.Fatalf("failed to create unit of work: %v", err)
	}
	defer u.Close()
	u.Products.AddRange(f.pen, f.paper)
	u.OrderItems.AddRange(
		&domain.OrderItem{Order: f.o1, Product: f.pen, Amount: 3},
		&domain.OrderItem{Order: f.o1, Product: f.paper, Amount: 4},
		&domain.OrderItem{Order: f.o2, Product: f.paper, Amount: 10},
	)
	if _, err := u.SaveChanges(ctx); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	lru := cache.NewLRUCache(100, 0)
	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })
	filters, _ := filter.NewEngine(0)

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}
	f.server = NewServer(cfg, store, lru, eventBus, stats.NewService(store, lru, time.Minute), filters, "test-v1")
	return f
}

func (f *testFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestOperationalEndpoints(t *testing.T) {
	f := createTestServer(t)

	t.Run("Health", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/health", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		resp := decode[map[string]string](t, rr)
		if resp["status"] != "healthy" {
			t.Errorf("expected status healthy, got %s", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version test-v1, got %s", resp["version"])
		}
		if rr.Header().Get(RequestIDHeader) == "" {
			t.Error("expected request id header")
		}
	})

	t.Run("Ready", func(t *testing.T) {
		if rr := f.do(t, http.MethodGet, "/ready", nil); rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		f.do(t, http.MethodGet, "/api/products", nil)
		rr := f.do(t, http.MethodGet, "/metrics", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "storefront_http_requests_total") {
			t.Error("expected request counter in metrics output")
		}
	})

	t.Run("Preflight", func(t *testing.T) {
		if rr := f.do(t, http.MethodOptions, "/api/orders", nil); rr.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rr.Code)
		}
	})
}

func TestCustomerEndpoints(t *testing.T) {
	f := createTestServer(t)

	t.Run("ListOrderedByName", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/customers", nil)
		customers := decode[[]domain.Customer](t, rr)
		if len(customers) != 2 {
			t.Fatalf("expected 2 customers, got %d", len(customers))
		}
		if customers[0].LastName != "Jones" || customers[1].LastName != "Smith" {
			t.Errorf("expected Jones before Smith, got %s, %s", customers[0].LastName, customers[1].LastName)
		}
	})

	t.Run("Create", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/customers", CreateCustomerRequest{
			CustomerNr: "1900000000", FirstName: "Clara", LastName: "Schumann",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		c := decode[domain.Customer](t, rr)
		if c.ID == 0 || c.RowVersion == "" {
			t.Errorf("expected id and row version, got %+v", c)
		}
	})

	t.Run("InvalidChecksum", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/customers", CreateCustomerRequest{
			CustomerNr: "1234567890", FirstName: "Johann", LastName: "Bach",
		})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		resp := decode[ErrorResponse](t, rr)
		if len(resp.Errors) != 1 || resp.Errors[0].Message != "Checksumme stimmt nicht" {
			t.Errorf("unexpected validation errors %+v", resp.Errors)
		}
	})

	t.Run("SeveralFailures", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/customers", CreateCustomerRequest{
			CustomerNr: "12a", FirstName: "Al", LastName: "Bo",
		})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		resp := decode[ErrorResponse](t, rr)
		if resp.Error != "Entity validation failed" {
			t.Errorf("expected aggregate message, got %q", resp.Error)
		}
		if len(resp.Errors) != 2 {
			t.Errorf("expected 2 validation errors, got %d", len(resp.Errors))
		}
	})

	t.Run("DuplicateName", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/customers", CreateCustomerRequest{
			CustomerNr: "2800000000", FirstName: "Ann", LastName: "Smith",
		})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		resp := decode[ErrorResponse](t, rr)
		want := []*validation.Error{validation.NewError("Customer Name ist nicht einzigartig", "FirstName", "LastName")}
		if len(resp.Errors) != 1 || resp.Errors[0].Message != want[0].Message || len(resp.Errors[0].Fields) != 2 {
			t.Errorf("unexpected validation errors %+v", resp.Errors)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		if rr := f.do(t, http.MethodPost, "/api/customers", "not-json"); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Unique", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/customers/unique?firstName=Ann&lastName=Smith", nil)
		if unique := decode[bool](t, rr); unique {
			t.Error("expected Ann Smith to be taken")
		}
		rr = f.do(t, http.MethodGet, "/api/customers/unique?firstName=Ann&lastName=Smyth", nil)
		if unique := decode[bool](t, rr); !unique {
			t.Error("expected Ann Smyth to be free")
		}
	})
}

func TestOrderEndpoints(t *testing.T) {
	f := createTestServer(t)

	t.Run("List", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/orders", nil)
		orders := decode[[]domain.Order](t, rr)
		if len(orders) != 2 {
			t.Fatalf("expected 2 orders, got %d", len(orders))
		}
		if orders[0].OrderNr != "O-2" {
			t.Errorf("expected newest order first, got %s", orders[0].OrderNr)
		}
		if orders[1].Customer == nil || len(orders[1].OrderItems) != 2 || orders[1].OrderItems[0].Product == nil {
			t.Error("expected customer, items and products to be loaded")
		}
	})

	t.Run("ListFiltered", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/orders?filter="+url.QueryEscape(`order_type == "Express"`), nil)
		orders := decode[[]domain.Order](t, rr)
		if len(orders) != 1 || orders[0].OrderNr != "O-2" {
			t.Errorf("expected only O-2, got %+v", orders)
		}
		if rr := f.do(t, http.MethodGet, "/api/orders?filter="+url.QueryEscape("total +"), nil); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid filter, got %d", rr.Code)
		}
	})

	t.Run("Page", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/orders/page?nameFilter=Smi&page=0&pageSize=10", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		summaries := decode[[]domain.OrderSummary](t, rr)
		if len(summaries) != 1 {
			t.Fatalf("expected 1 summary, got %d", len(summaries))
		}
		if summaries[0].CustomerName != "Smith Ann" || summaries[0].Total != 40 {
			t.Errorf("unexpected summary %+v", summaries[0])
		}

		if rr := f.do(t, http.MethodGet, "/api/orders/page?page=-1", nil); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for negative page, got %d", rr.Code)
		}
		if rr := f.do(t, http.MethodGet, "/api/orders/page?page=922337203685477581&pageSize=10", nil); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for an unaddressable page, got %d", rr.Code)
		}
		if rr := f.do(t, http.MethodGet, "/api/orders/page?pageSize=abc", nil); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for malformed pageSize, got %d", rr.Code)
		}
	})

	t.Run("Count", func(t *testing.T) {
		if n := decode[int](t, f.do(t, http.MethodGet, "/api/orders/count", nil)); n != 2 {
			t.Errorf("expected 2 orders, got %d", n)
		}
		if n := decode[int](t, f.do(t, http.MethodGet, "/api/orders/count?nameFilter=Jon", nil)); n != 1 {
			t.Errorf("expected 1 order, got %d", n)
		}
	})

	t.Run("Statistic", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/orders/statistic", nil)
		stat := decode[domain.SalesStatistic](t, rr)
		if stat.TotalSales != 65 {
			t.Errorf("expected total 65, got %v", stat.TotalSales)
		}
		if stat.BestProduct != "Paper" || stat.BestProductSales != 35 {
			t.Errorf("expected Paper with 35, got %s with %v", stat.BestProduct, stat.BestProductSales)
		}
		if len(stat.Customers) != 2 || stat.Customers[0].CustomerName != "Ann Smith" {
			t.Errorf("unexpected customer breakdown %+v", stat.Customers)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", f.o1.ID), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if o := decode[domain.Order](t, rr); o.OrderNr != "O-1" || o.Total() != 40 {
			t.Errorf("unexpected order %+v", o)
		}
		if rr := f.do(t, http.MethodGet, "/api/orders/999", nil); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
		if rr := f.do(t, http.MethodGet, "/api/orders/abc", nil); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	var created domain.Order
	t.Run("Create", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/orders", CreateOrderRequest{OrderNr: "O-3", CustomerID: f.bob.ID})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		created = decode[domain.Order](t, rr)
		if created.OrderType != domain.OrderTypeStandard {
			t.Errorf("expected default order type, got %s", created.OrderType)
		}
		if time.Since(created.Date) > time.Minute {
			t.Errorf("expected order dated now, got %v", created.Date)
		}

		if rr := f.do(t, http.MethodPost, "/api/orders", CreateOrderRequest{OrderNr: "O-4", CustomerID: 999}); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for unknown customer, got %d", rr.Code)
		}
		if rr := f.do(t, http.MethodPost, "/api/orders", CreateOrderRequest{CustomerID: f.bob.ID}); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for missing order number, got %d", rr.Code)
		}
	})

	t.Run("Update", func(t *testing.T) {
		path := fmt.Sprintf("/api/orders/%d", created.ID)
		req := UpdateOrderRequest{
			ID:         created.ID,
			RowVersion: created.RowVersion,
			OrderNr:    "O-3b",
			CustomerID: f.ann.ID,
			OrderType:  domain.OrderTypeWholesale,
		}

		rr := f.do(t, http.MethodPut, path, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		updated := decode[domain.Order](t, rr)
		if updated.RowVersion == created.RowVersion {
			t.Error("expected a new row version")
		}

		// The old version is now stale.
		req.OrderNr = "O-3c"
		if rr := f.do(t, http.MethodPut, path, req); rr.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rr.Code)
		}

		mismatch := req
		mismatch.ID = created.ID + 1
		if rr := f.do(t, http.MethodPut, path, mismatch); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for id mismatch, got %d", rr.Code)
		}

		unversioned := req
		unversioned.RowVersion = ""
		if rr := f.do(t, http.MethodPut, path, unversioned); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for missing row version, got %d", rr.Code)
		}

		gone := req
		gone.ID = 999
		if rr := f.do(t, http.MethodPut, "/api/orders/999", gone); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		path := fmt.Sprintf("/api/orders/%d", f.o2.ID)
		if rr := f.do(t, http.MethodDelete, path, nil); rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if rr := f.do(t, http.MethodGet, path, nil); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 after delete, got %d", rr.Code)
		}
		if rr := f.do(t, http.MethodDelete, path, nil); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 on second delete, got %d", rr.Code)
		}
	})
}

func TestOrderItemEndpoints(t *testing.T) {
	f := createTestServer(t)

	t.Run("ListByOrder", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, fmt.Sprintf("/api/orderitems?orderId=%d", f.o1.ID), nil)
		items := decode[[]domain.OrderItem](t, rr)
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[0].Product.Name != "Paper" || items[1].Product.Name != "Pen" {
			t.Errorf("expected items ordered by product name, got %s, %s", items[0].Product.Name, items[1].Product.Name)
		}
		if rr := f.do(t, http.MethodGet, "/api/orderitems", nil); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 without orderId, got %d", rr.Code)
		}
	})

	var created domain.OrderItem
	t.Run("Create", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/orderitems", CreateOrderItemRequest{OrderID: f.o2.ID, ProductID: f.pen.ID, Amount: 2})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		created = decode[domain.OrderItem](t, rr)

		if rr := f.do(t, http.MethodPost, "/api/orderitems", CreateOrderItemRequest{OrderID: f.o2.ID, ProductID: 999, Amount: 1}); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for unknown product, got %d", rr.Code)
		}
		if rr := f.do(t, http.MethodPost, "/api/orderitems", CreateOrderItemRequest{OrderID: f.o2.ID, Amount: 1}); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for missing product, got %d", rr.Code)
		}
	})

	t.Run("StatisticRefreshed", func(t *testing.T) {
		// The worker is not running here; the cache was never filled in this test.
		stat := decode[domain.SalesStatistic](t, f.do(t, http.MethodGet, "/api/orders/statistic", nil))
		if stat.TotalSales != 85 {
			t.Errorf("expected total 85, got %v", stat.TotalSales)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, fmt.Sprintf("/api/orderitems/%d", created.ID), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if item := decode[domain.OrderItem](t, rr); item.Product == nil || item.Product.Name != "Pen" {
			t.Errorf("expected product to be loaded, got %+v", item)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		path := fmt.Sprintf("/api/orderitems/%d", created.ID)
		if rr := f.do(t, http.MethodDelete, path, nil); rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if rr := f.do(t, http.MethodGet, path, nil); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 after delete, got %d", rr.Code)
		}
		if rr := f.do(t, http.MethodDelete, path, nil); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 on second delete, got %d", rr.Code)
		}
	})
}

func TestProductEndpoints(t *testing.T) {
	f := createTestServer(t)

	t.Run("List", func(t *testing.T) {
		products := decode[[]domain.Product](t, f.do(t, http.MethodGet, "/api/products", nil))
		if len(products) != 2 || products[0].ProductNr != "P-001" {
			t.Errorf("expected products ordered by number, got %+v", products)
		}
	})

	t.Run("WithCategories", func(t *testing.T) {
		products := decode[[]domain.Product](t, f.do(t, http.MethodGet, "/api/products/categories", nil))
		if len(products) != 2 {
			t.Fatalf("expected 2 products, got %d", len(products))
		}
		if len(products[0].Categories) != 1 || products[0].Categories[0].CategoryName != "Office" {
			t.Errorf("expected pen in Office, got %+v", products[0].Categories)
		}
		if len(products[1].Categories) != 0 {
			t.Errorf("expected paper without categories, got %+v", products[1].Categories)
		}
	})

	t.Run("Paged", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/products/paged?page=2&pageSize=1", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		result := decode[repository.PagedResult[*domain.Product]](t, rr)
		if result.TotalCount != 2 || result.TotalPages != 2 || result.Page != 2 {
			t.Errorf("unexpected paging %+v", result)
		}
		if len(result.Items) != 1 || result.Items[0].ProductNr != "P-002" {
			t.Errorf("expected P-002 on page 2, got %+v", result.Items)
		}
	})

	t.Run("PagedFiltered", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/products/paged?filter="+url.QueryEscape(`"Office" in categories`), nil)
		result := decode[repository.PagedResult[*domain.Product]](t, rr)
		if result.TotalCount != 1 || result.Items[0].Name != "Pen" {
			t.Errorf("expected only Pen, got %+v", result)
		}

		if rr := f.do(t, http.MethodGet, "/api/products/paged?filter="+url.QueryEscape("weight > 1.0"), nil); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for unknown variable, got %d", rr.Code)
		}
	})

	t.Run("PageOutOfRange", func(t *testing.T) {
		if rr := f.do(t, http.MethodGet, "/api/products/paged?page=0", nil); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for page 0, got %d", rr.Code)
		}
	})
}

func TestStatisticWithSingleConnection(t *testing.T) {
	f := createTestServer(t, func(cfg *domain.RepositoryConfig) { cfg.MaxOpenConns = 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/orders/statistic", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	stat := decode[domain.SalesStatistic](t, rr)
	if stat.TotalSales != 65 {
		t.Errorf("expected total 65, got %v", stat.TotalSales)
	}
}
