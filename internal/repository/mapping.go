package repository

import (
	"context"
	"strings"

	"github.com/opensource-finance/storefront/internal/domain"
)

// table is the untyped half of an entity mapping used by the change tracker.
type table struct {
	name    string // entity name used in logs and errors
	table   string
	columns []string // non-key columns, in insert order
	rank    int      // insert order; deletes run in reverse

	values  func(domain.Entity) []any
	prepare func(domain.Entity)                 // copies navigation keys into foreign keys
	related func(domain.Entity) []domain.Entity // navigations followed when discovering new entities
	links   func(domain.Entity) []link          // many-to-many rows owned by the entity
}

// link is one row of a many-to-many join table.
type link struct {
	table       string
	left, right string
	leftID      int64
	rightID     int64
}

// loader eagerly materializes one navigation for a batch of entities.
type loader[T domain.Entity] func(ctx context.Context, u *UnitOfWork, items []T, tracking bool) error

// mapping binds an entity type to its table.
type mapping[T domain.Entity] struct {
	*table
	newEntity func() T
	scan      func(T) []any // destinations for columns, same order as table.columns
	includes  map[string]loader[T]
}

func newMapping[T domain.Entity](name, tableName string, rank int, columns []string, newEntity func() T, scan func(T) []any, values func(T) []any) *mapping[T] {
	return &mapping[T]{
		table: &table{
			name:    name,
			table:   tableName,
			columns: columns,
			rank:    rank,
			values:  func(e domain.Entity) []any { return values(e.(T)) },
		},
		newEntity: newEntity,
		scan:      scan,
		includes:  make(map[string]loader[T]),
	}
}

func (t *table) selectList() string {
	return "id, row_version, " + strings.Join(t.columns, ", ")
}

func (t *table) insertSQL() string {
	return "INSERT INTO " + t.table + " (row_version, " + strings.Join(t.columns, ", ") +
		") VALUES (" + placeholders(len(t.columns)+1) + ") RETURNING id"
}

func (t *table) updateSQL(checkVersion bool) string {
	var b strings.Builder
	b.WriteString("UPDATE " + t.table + " SET row_version = ?")
	for _, c := range t.columns {
		b.WriteString(", " + c + " = ?")
	}
	b.WriteString(" WHERE id = ?")
	if checkVersion {
		b.WriteString(" AND row_version = ?")
	}
	return b.String()
}

func (t *table) deleteSQL(checkVersion bool) string {
	q := "DELETE FROM " + t.table + " WHERE id = ?"
	if checkVersion {
		q += " AND row_version = ?"
	}
	return q
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// tableOf returns the table of a tracked entity by its dynamic type.
func tableOf(e domain.Entity) *table {
	switch e.(type) {
	case *domain.Customer:
		return customerMapping.table
	case *domain.Product:
		return productMapping.table
	case *domain.Category:
		return categoryMapping.table
	case *domain.Order:
		return orderMapping.table
	case *domain.OrderItem:
		return orderItemMapping.table
	}
	return nil
}
