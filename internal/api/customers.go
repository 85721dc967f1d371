package api

import (
	"log/slog"
	"net/http"

	"github.com/opensource-finance/storefront/internal/domain"
)

// CreateCustomerRequest is the request body for POST /api/customers.
type CreateCustomerRequest struct {
	CustomerNr string `json:"customerNr"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

// ListCustomers returns all customers ordered by last and first name.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := UnitOfWork(r.Context()).Customers.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(customers))
}

// CreateCustomer validates and stores a new customer.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := UnitOfWork(ctx)

	var req CreateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	customer := &domain.Customer{
		CustomerNr: req.CustomerNr,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	}
	if _, err := u.Customers.Add(customer); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("customer created", "id", customer.ID, "customer_nr", customer.CustomerNr)
	writeJSON(w, http.StatusCreated, customer)
}

// IsCustomerNameUnique reports whether no customer uses the given name pair.
func (h *Handler) IsCustomerNameUnique(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unique, err := UnitOfWork(r.Context()).Customers.IsFullNameUnique(r.Context(), q.Get("firstName"), q.Get("lastName"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, unique)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
