package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/storefront/internal/domain"
)

// Repository is the data-access facade of one entity type.
// Writes are staged in the owning unit of work and persisted by SaveChanges.
type Repository[T domain.Entity] struct {
	u *UnitOfWork
	m *mapping[T]
}

func newRepository[T domain.Entity](u *UnitOfWork, m *mapping[T]) *Repository[T] {
	return &Repository[T]{u: u, m: m}
}

// Query starts a query over the whole table. With disableTracking the
// returned entities are not attached to the unit of work.
func (r *Repository[T]) Query(disableTracking bool) *Query[T] {
	return newQuery(r.u, r.m, !disableTracking)
}

// Get runs a query assembled from the optional filter, order terms and includes.
func (r *Repository[T]) Get(ctx context.Context, disableTracking bool, filter func(T) bool, orderBy []string, includes ...string) ([]T, error) {
	return r.Query(disableTracking).Include(includes...).Filter(filter).OrderBy(orderBy...).List(ctx)
}

// GetPage returns the zero-based page of q. A nil q pages over the whole table.
func (r *Repository[T]) GetPage(ctx context.Context, q *Query[T], page, pageSize int) ([]T, error) {
	if err := checkPage(page, pageSize); err != nil {
		return nil, err
	}
	if q == nil {
		q = r.Query(false)
	}
	return q.Skip(page * pageSize).Take(pageSize).List(ctx)
}

// GetByID returns the entity with the given key, or the zero value when it
// does not exist. Entities staged for deletion count as absent.
func (r *Repository[T]) GetByID(ctx context.Context, id int64) (T, error) {
	var zero T
	if err := r.u.ensureOpen(); err != nil {
		return zero, err
	}

	if en := r.u.tracker.lookup(r.m.table, id); en != nil {
		if en.state == Deleted {
			slog.Warn("entity not found", "entity", r.m.name, "id", id)
			return zero, nil
		}
		return en.entity.(T), nil
	}

	e, err := r.Query(false).Where("id = ?", id).First(ctx)
	if err != nil {
		slog.Error("failed to get entity", "entity", r.m.name, "id", id, "error", err)
		return zero, fmt.Errorf("failed to get %s %d: %w", r.m.name, id, err)
	}
	if isZero(e) {
		slog.Warn("entity not found", "entity", r.m.name, "id", id)
	}
	return e, nil
}

// Exists reports whether a row with the given key is persisted.
func (r *Repository[T]) Exists(ctx context.Context, id int64) (bool, error) {
	if err := r.u.ensureOpen(); err != nil {
		return false, err
	}

	var one int
	query := "SELECT 1 FROM " + r.m.table.table + " WHERE id = ?"
	err := r.u.db().QueryRowContext(ctx, r.u.store.rebind(query), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s %d: %w", r.m.name, id, err)
	}
	return true, nil
}

// Add stages e for insertion. Unsaved entities reachable through its
// navigations are staged with it.
func (r *Repository[T]) Add(e T) (*Entry, error) {
	if err := r.u.ensureOpen(); err != nil {
		return nil, err
	}
	if isZero(e) {
		return nil, fmt.Errorf("%w: %s is nil", ErrInvalidInput, r.m.name)
	}
	if e.GetID() != 0 {
		return nil, fmt.Errorf("%w: new %s must not carry an id", ErrInvalidInput, r.m.name)
	}

	en, err := r.u.tracker.track(e, r.m.table, Added)
	if err != nil {
		slog.Error("failed to add entity", "entity", r.m.name, "error", err)
		return nil, err
	}
	r.u.tracker.detectChanges()
	return en, nil
}

// AddRange stages every entity for insertion.
func (r *Repository[T]) AddRange(entities ...T) error {
	for _, e := range entities {
		if _, err := r.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Attach tracks a detached entity and marks every column modified.
func (r *Repository[T]) Attach(e T) (*Entry, error) {
	if err := r.u.ensureOpen(); err != nil {
		return nil, err
	}
	if isZero(e) {
		return nil, fmt.Errorf("%w: %s is nil", ErrInvalidInput, r.m.name)
	}
	if e.GetID() == 0 {
		return nil, fmt.Errorf("%w: cannot attach %s without id", ErrInvalidInput, r.m.name)
	}
	return r.u.tracker.track(e, r.m.table, Modified)
}

// Update marks e modified, or added when it has never been saved.
func (r *Repository[T]) Update(e T) (*Entry, error) {
	if err := r.u.ensureOpen(); err != nil {
		return nil, err
	}
	if isZero(e) {
		return nil, fmt.Errorf("%w: %s is nil", ErrInvalidInput, r.m.name)
	}
	if en := r.u.tracker.entry(e); en != nil && en.state == Added {
		return en, nil
	}
	if e.GetID() == 0 {
		return r.Add(e)
	}
	return r.u.tracker.track(e, r.m.table, Modified)
}

// Remove stages e for deletion, attaching it first when detached.
// Removing an entity that was only added cancels the insert.
func (r *Repository[T]) Remove(e T) error {
	if err := r.u.ensureOpen(); err != nil {
		return err
	}
	if isZero(e) {
		return fmt.Errorf("%w: %s is nil", ErrInvalidInput, r.m.name)
	}
	if en := r.u.tracker.entry(e); en != nil && en.state == Added {
		r.u.tracker.detach(en)
		return nil
	}
	if e.GetID() == 0 {
		return fmt.Errorf("%w: cannot remove unsaved %s", ErrInvalidInput, r.m.name)
	}
	if _, err := r.u.tracker.track(e, r.m.table, Deleted); err != nil {
		slog.Error("failed to remove entity", "entity", r.m.name, "id", e.GetID(), "error", err)
		return err
	}
	return nil
}

// Delete stages the entity with the given key for deletion. It reports
// false without error when no such entity exists.
func (r *Repository[T]) Delete(ctx context.Context, id int64) (bool, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if isZero(e) {
		slog.Warn("entity to delete not found", "entity", r.m.name, "id", id)
		return false, nil
	}
	if err := r.Remove(e); err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of entities matched by q, or of the whole table when q is nil.
func (r *Repository[T]) Count(ctx context.Context, q *Query[T]) (int, error) {
	if q == nil {
		q = r.Query(true)
	}
	return q.Count(ctx)
}

// HasChanges reports whether the owning unit of work has pending changes.
func (r *Repository[T]) HasChanges() bool {
	return r.u.HasChanges()
}

// Entry returns the tracking handle of e, or nil when e is not tracked.
func (r *Repository[T]) Entry(e T) *Entry {
	return r.u.tracker.entry(e)
}

func isZero[T any](v T) bool {
	var zero T
	return any(v) == any(zero)
}
