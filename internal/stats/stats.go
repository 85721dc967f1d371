// Package stats serves the sales statistic from cache, computing it on a miss.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/storefront/internal/cache"
	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/metrics"
	"github.com/opensource-finance/storefront/internal/repository"
)

// DefaultTTL is used when no statistic TTL is configured.
const DefaultTTL = time.Minute

// Service computes sales statistics and keeps the last result in a cache.
type Service struct {
	store *repository.Store
	cache domain.Cache
	ttl   time.Duration
}

// NewService creates a new statistic service. A nil cache disables caching.
func NewService(store *repository.Store, c domain.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store: store,
		cache: c,
		ttl:   ttl,
	}
}

// SalesStatistic returns the cached statistic or computes a fresh one.
// A miss is computed through u when given, so a caller already holding a
// connection does not wait for a second one; a nil u opens its own unit of
// work. Cache faults are logged and fall through to the database.
func (s *Service) SalesStatistic(ctx context.Context, u *repository.UnitOfWork) (*domain.SalesStatistic, error) {
	if s.cache != nil {
		var cached domain.SalesStatistic
		found, err := cache.GetJSON(ctx, s.cache, domain.CacheKeySalesStatistic, &cached)
		if err != nil {
			slog.Warn("statistic cache read failed", "error", err)
		}
		metrics.RecordStatisticLookup(found)
		if found {
			return &cached, nil
		}
	}

	stat, err := s.compute(ctx, u)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, domain.CacheKeySalesStatistic, stat, s.ttl); err != nil {
			slog.Warn("statistic cache write failed", "error", err)
		}
	}
	return stat, nil
}

// Invalidate drops the cached statistic.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, domain.CacheKeySalesStatistic); err != nil {
		return fmt.Errorf("failed to invalidate sales statistic: %w", err)
	}
	return nil
}

func (s *Service) compute(ctx context.Context, u *repository.UnitOfWork) (*domain.SalesStatistic, error) {
	if u == nil {
		if s.store == nil {
			return nil, fmt.Errorf("no data source available")
		}
		own, err := repository.NewUnitOfWork(ctx, s.store, nil)
		if err != nil {
			return nil, err
		}
		defer own.Close()
		u = own
	}

	start := time.Now()
	stat, err := u.Orders.GetSalesStatistic(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("sales statistic computed",
		"total_sales", stat.TotalSales,
		"customers", len(stat.Customers),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return stat, nil
}
