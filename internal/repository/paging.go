package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/opensource-finance/storefront/internal/domain"
)

// PagedResult is one page of a one-based pagination.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

func checkPage(page, pageSize int) error {
	if page < 0 {
		return fmt.Errorf("%w: page must not be negative, got %d", ErrOutOfRange, page)
	}
	if pageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrOutOfRange, pageSize)
	}
	if page > math.MaxInt/pageSize {
		return fmt.Errorf("%w: page %d of size %d exceeds the addressable range", ErrOutOfRange, page, pageSize)
	}
	return nil
}

// GetProjected runs q and maps every entity through selector. A nil
// selector is only allowed when R is the entity type itself.
func GetProjected[T domain.Entity, R any](ctx context.Context, q *Query[T], selector func(T) R) ([]R, error) {
	if selector == nil {
		var zero T
		if _, ok := any(zero).(R); !ok {
			return nil, fmt.Errorf("%w: a selector is required to project %T", ErrInvalidOperation, zero)
		}
		selector = func(e T) R { return any(e).(R) }
	}

	items, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]R, len(items))
	for i, e := range items {
		out[i] = selector(e)
	}
	return out, nil
}

// GetProjectedPage is GetProjected over the zero-based page of q.
func GetProjectedPage[T domain.Entity, R any](ctx context.Context, q *Query[T], page, pageSize int, selector func(T) R) ([]R, error) {
	if err := checkPage(page, pageSize); err != nil {
		return nil, err
	}
	return GetProjected(ctx, q.Skip(page*pageSize).Take(pageSize), selector)
}

// ToPagedList returns the one-based page of q together with the totals.
func ToPagedList[T domain.Entity](ctx context.Context, q *Query[T], page, pageSize int) (*PagedResult[T], error) {
	if page <= 0 {
		return nil, fmt.Errorf("%w: page must be positive, got %d", ErrOutOfRange, page)
	}
	if err := checkPage(page-1, pageSize); err != nil {
		return nil, err
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	items, err := q.Skip((page - 1) * pageSize).Take(pageSize).List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}

	return &PagedResult[T]{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}
