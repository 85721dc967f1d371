package stats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/storefront/internal/cache"
	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/repository"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "stats-test-*.db")
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

	store, err := repository.Open(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

// addOrder stores one order of amount pens for a fresh customer.
func addOrder(t *testing.T, store *repository.Store, orderNr, customerNr string, amount int) {
	t.Helper()
	ctx := context.Background()

	u, err := repository.NewUnitOfWork(ctx, store, nil)
	if err != nil {
		t.Fatalf("failed to create unit of work: %v", err)
	}
	defer u.Close()

	pen, err := u.Products.Query(false).Where("product_nr = ?", "P-001").First(ctx)
	if err != nil {
		t.Fatalf("failed to load product: %v", err)
	}
	if pen == nil {
		pen = &domain.Product{ProductNr: "P-001", Name: "Pen", Price: 10}
	}

	customer := &domain.Customer{CustomerNr: customerNr, FirstName: "Cust" + orderNr, LastName: "Omer"}
	order := &domain.Order{OrderNr: orderNr, Date: time.Now().UTC(), Customer: customer, OrderType: domain.OrderTypeStandard}
	item := &domain.OrderItem{Order: order, Product: pen, Amount: amount}
	if _, err := u.OrderItems.Add(item); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		t.Fatalf("SaveChanges failed: %v", err)
	}
}

func TestSalesStatistic(t *testing.T) {
	store := newTestStore(t)
	lru := cache.NewLRUCache(10, 0)
	defer lru.Close()

	svc := NewService(store, lru, time.Hour)
	ctx := context.Background()

	t.Run("EmptyDatabase", func(t *testing.T) {
		stat, err := svc.SalesStatistic(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stat.TotalSales != 0 || len(stat.Customers) != 0 {
			t.Errorf("expected empty statistic, got %+v", stat)
		}
		if err := svc.Invalidate(ctx); err != nil {
			t.Fatalf("Invalidate failed: %v", err)
		}
	})

	t.Run("ServedFromCache", func(t *testing.T) {
		addOrder(t, store, "O-1", "1111111111", 3)

		stat, err := svc.SalesStatistic(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stat.TotalSales != 30 {
			t.Errorf("expected total 30, got %v", stat.TotalSales)
		}

		addOrder(t, store, "O-2", "5500000000", 2)

		stat, err = svc.SalesStatistic(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stat.TotalSales != 30 {
			t.Errorf("expected cached total 30, got %v", stat.TotalSales)
		}
	})

	t.Run("InvalidateRecomputes", func(t *testing.T) {
		if err := svc.Invalidate(ctx); err != nil {
			t.Fatalf("Invalidate failed: %v", err)
		}

		stat, err := svc.SalesStatistic(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stat.TotalSales != 50 {
			t.Errorf("expected total 50, got %v", stat.TotalSales)
		}
		if stat.BestProduct != "Pen" {
			t.Errorf("expected best product Pen, got %q", stat.BestProduct)
		}
		if len(stat.Customers) != 2 {
			t.Errorf("expected 2 customers, got %d", len(stat.Customers))
		}
	})
}

func TestWithoutCache(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	addOrder(t, store, "O-1", "1111111111", 1)
	if stat, err := svc.SalesStatistic(ctx, nil); err != nil || stat.TotalSales != 10 {
		t.Fatalf("expected total 10, got %+v err=%v", stat, err)
	}

	addOrder(t, store, "O-2", "5500000000", 1)
	if stat, err := svc.SalesStatistic(ctx, nil); err != nil || stat.TotalSales != 20 {
		t.Fatalf("expected uncached total 20, got %+v err=%v", stat, err)
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Errorf("expected no-op invalidate, got %v", err)
	}
}

func TestNoDataSource(t *testing.T) {
	svc := NewService(nil, nil, 0)
	if _, err := svc.SalesStatistic(context.Background(), nil); err == nil {
		t.Error("expected error with no data source")
	}
}

func TestComputesThroughCallerUnitOfWork(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "stats-single-*.db")
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

	// A single pooled connection: the caller's unit of work holds it.
	store, err := repository.Open(domain.RepositoryConfig{
		Driver:       "sqlite",
		SQLitePath:   tmpPath,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	addOrder(t, store, "O-1", "1111111111", 4)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	u, err := repository.NewUnitOfWork(ctx, store, nil)
	if err != nil {
		t.Fatalf("failed to create unit of work: %v", err)
	}
	defer u.Close()

	svc := NewService(store, nil, 0)
	stat, err := svc.SalesStatistic(ctx, u)
	if err != nil {
		t.Fatalf("SalesStatistic failed: %v", err)
	}
	if stat.TotalSales != 40 {
		t.Errorf("expected total 40, got %v", stat.TotalSales)
	}
}
