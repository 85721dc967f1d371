package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/opensource-finance/storefront/internal/domain"
)

// Query is a composable, immutable query over one entity table.
// Builders return a modified copy; nothing touches the store until a
// terminal (List, First, Count) runs.
//
// Stages apply in the order include, filter, order, page. Where conditions
// and OrderBy terms are SQL; Filter and SortFunc run in Go after loading.
type Query[T domain.Entity] struct {
	u        *UnitOfWork
	m        *mapping[T]
	tracking bool

	includes []string
	conds    []string
	args     []any
	filters  []func(T) bool
	orderBy  []string
	sorts    []func(a, b T) int
	skip     int
	take     int
}

func newQuery[T domain.Entity](u *UnitOfWork, m *mapping[T], tracking bool) *Query[T] {
	return &Query[T]{u: u, m: m, tracking: tracking, take: -1}
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.includes = slices.Clone(q.includes)
	c.conds = slices.Clone(q.conds)
	c.args = slices.Clone(q.args)
	c.filters = slices.Clone(q.filters)
	c.orderBy = slices.Clone(q.orderBy)
	c.sorts = slices.Clone(q.sorts)
	return &c
}

// Include eagerly loads the named navigations, e.g. "OrderItems.Product".
func (q *Query[T]) Include(paths ...string) *Query[T] {
	c := q.clone()
	c.includes = append(c.includes, paths...)
	return c
}

// Where adds a SQL condition with ? placeholders.
func (q *Query[T]) Where(cond string, args ...any) *Query[T] {
	c := q.clone()
	c.conds = append(c.conds, cond)
	c.args = append(c.args, args...)
	return c
}

// Filter adds a predicate evaluated on loaded entities.
func (q *Query[T]) Filter(pred func(T) bool) *Query[T] {
	if pred == nil {
		return q
	}
	c := q.clone()
	c.filters = append(c.filters, pred)
	return c
}

// OrderBy appends SQL order terms. The id is always the final tiebreak.
func (q *Query[T]) OrderBy(terms ...string) *Query[T] {
	c := q.clone()
	c.orderBy = append(c.orderBy, terms...)
	return c
}

// SortFunc appends an in-memory comparison applied after OrderBy.
func (q *Query[T]) SortFunc(cmp func(a, b T) int) *Query[T] {
	if cmp == nil {
		return q
	}
	c := q.clone()
	c.sorts = append(c.sorts, cmp)
	return c
}

func (q *Query[T]) Skip(n int) *Query[T] {
	c := q.clone()
	c.skip = max(n, 0)
	return c
}

// Take limits the result size; a negative n removes the limit.
func (q *Query[T]) Take(n int) *Query[T] {
	c := q.clone()
	c.take = n
	return c
}

// AsNoTracking returns the query with change tracking disabled.
func (q *Query[T]) AsNoTracking() *Query[T] {
	c := q.clone()
	c.tracking = false
	return c
}

// pushdown reports whether paging can be done in SQL.
func (q *Query[T]) pushdown() bool {
	return len(q.filters) == 0 && len(q.sorts) == 0
}

func (q *Query[T]) where() string {
	if len(q.conds) == 0 {
		return ""
	}
	parts := make([]string, len(q.conds))
	for i, c := range q.conds {
		parts[i] = "(" + c + ")"
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func (q *Query[T]) selectSQL() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT " + q.m.selectList() + " FROM " + q.m.table.table)
	b.WriteString(q.where())
	b.WriteString(" ORDER BY ")
	for _, term := range q.orderBy {
		b.WriteString(term + ", ")
	}
	b.WriteString("id ASC")

	args := slices.Clone(q.args)
	if q.pushdown() {
		switch {
		case q.take >= 0:
			b.WriteString(" LIMIT ? OFFSET ?")
			args = append(args, q.take, q.skip)
		case q.skip > 0 && q.u.store.driver == "postgres":
			b.WriteString(" OFFSET ?")
			args = append(args, q.skip)
		case q.skip > 0:
			b.WriteString(" LIMIT -1 OFFSET ?")
			args = append(args, q.skip)
		}
	}
	return b.String(), args
}

// loaders resolves the include paths; nested paths pull in their prefixes.
func (q *Query[T]) loaders() ([]loader[T], error) {
	var paths []string
	seen := make(map[string]bool)
	for _, p := range q.includes {
		parts := strings.Split(p, ".")
		for i := range parts {
			prefix := strings.Join(parts[:i+1], ".")
			if seen[prefix] {
				continue
			}
			if _, ok := q.m.includes[prefix]; !ok {
				return nil, fmt.Errorf("%w: %s has no navigation %q", ErrInvalidInput, q.m.name, prefix)
			}
			seen[prefix] = true
			paths = append(paths, prefix)
		}
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return strings.Count(paths[i], ".") < strings.Count(paths[j], ".")
	})

	out := make([]loader[T], len(paths))
	for i, p := range paths {
		out[i] = q.m.includes[p]
	}
	return out, nil
}

// List executes the query.
func (q *Query[T]) List(ctx context.Context) ([]T, error) {
	if err := q.u.ensureOpen(); err != nil {
		return nil, err
	}
	loaders, err := q.loaders()
	if err != nil {
		return nil, err
	}

	query, args := q.selectSQL()
	items, err := fetch(ctx, q.u, q.m, query, args, q.tracking)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.m.name, err)
	}

	for _, load := range loaders {
		if err := load(ctx, q.u, items, q.tracking); err != nil {
			return nil, err
		}
	}

	if q.pushdown() {
		return items, nil
	}

	for _, pred := range q.filters {
		items = slices.DeleteFunc(items, func(e T) bool { return !pred(e) })
	}
	if len(q.sorts) > 0 {
		slices.SortStableFunc(items, func(a, b T) int {
			for _, cmp := range q.sorts {
				if c := cmp(a, b); c != 0 {
					return c
				}
			}
			return 0
		})
	}
	return page(items, q.skip, q.take), nil
}

// First returns the first result, or the zero value when there is none.
func (q *Query[T]) First(ctx context.Context) (T, error) {
	var zero T
	items, err := q.Take(1).List(ctx)
	if err != nil || len(items) == 0 {
		return zero, err
	}
	return items[0], nil
}

// Count returns the number of results.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	if err := q.u.ensureOpen(); err != nil {
		return 0, err
	}
	if len(q.filters) > 0 || q.skip > 0 || q.take >= 0 {
		items, err := q.AsNoTracking().List(ctx)
		return len(items), err
	}

	var n int
	query := "SELECT COUNT(*) FROM " + q.m.table.table + q.where()
	if err := q.u.db().QueryRowContext(ctx, q.u.store.rebind(query), q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.m.name, err)
	}
	return n, nil
}

func page[E any](items []E, skip, take int) []E {
	if skip >= len(items) {
		return items[:0]
	}
	items = items[skip:]
	if take >= 0 && take < len(items) {
		items = items[:take]
	}
	return items
}

// fetch runs query and scans every row before returning, so the rows are
// closed before any include loader reuses the connection.
func fetch[T domain.Entity](ctx context.Context, u *UnitOfWork, m *mapping[T], query string, args []any, tracking bool) ([]T, error) {
	rows, err := u.db().QueryContext(ctx, u.store.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		e := m.newEntity()
		var id int64
		var version string
		dest := append([]any{&id, &version}, m.scan(e)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		e.SetID(id)
		e.SetRowVersion(version)
		if tracking {
			e = u.tracker.resolve(e, m.table).(T)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
