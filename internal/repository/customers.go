package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/storefront/internal/domain"
)

// CustomerRepository adds the customer queries to the generic repository.
type CustomerRepository struct {
	*Repository[*domain.Customer]
}

// GetAll returns every customer ordered by last name, then first name.
func (r *CustomerRepository) GetAll(ctx context.Context) ([]*domain.Customer, error) {
	return r.Query(false).OrderBy("last_name ASC", "first_name ASC").List(ctx)
}

// IsFullNameUnique reports whether no persisted customer has exactly this
// first and last name. The comparison is case-sensitive.
func (r *CustomerRepository) IsFullNameUnique(ctx context.Context, firstName, lastName string) (bool, error) {
	return r.IsFullNameUniqueExcept(ctx, firstName, lastName, 0)
}

// IsFullNameUniqueExcept is IsFullNameUnique ignoring the customer with
// excludeID, so a saved customer does not collide with itself.
func (r *CustomerRepository) IsFullNameUniqueExcept(ctx context.Context, firstName, lastName string, excludeID int64) (bool, error) {
	if err := r.u.ensureOpen(); err != nil {
		return false, err
	}

	var n int
	query := "SELECT COUNT(*) FROM customers WHERE first_name = ? AND last_name = ? AND id <> ?"
	err := r.u.db().QueryRowContext(ctx, r.u.store.rebind(query), firstName, lastName, excludeID).Scan(&n)
	if err != nil {
		slog.Error("failed to check customer name", "first_name", firstName, "last_name", lastName, "error", err)
		return false, fmt.Errorf("failed to check customer name: %w", err)
	}
	return n == 0, nil
}

// HasStagedFullName reports whether a customer other than c, staged for
// insert or update in this unit of work, has the same name pair. Such
// customers are not visible to IsFullNameUniqueExcept until committed.
func (r *CustomerRepository) HasStagedFullName(c *domain.Customer) bool {
	for _, en := range r.u.tracker.entries {
		if en.state != Added && en.state != Modified {
			continue
		}
		other, ok := en.entity.(*domain.Customer)
		if !ok || other == c {
			continue
		}
		if other.FirstName == c.FirstName && other.LastName == c.LastName {
			return true
		}
	}
	return false
}
