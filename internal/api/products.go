package api

import (
	"net/http"

	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/repository"
)

// ListProducts returns all products ordered by product number.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := UnitOfWork(r.Context()).Products.GetAllOrderedByName(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

// ListProductsWithCategories returns all products with their categories.
func (h *Handler) ListProductsWithCategories(w http.ResponseWriter, r *http.Request) {
	products, err := UnitOfWork(r.Context()).Products.GetAllWithCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

// GetProductPage returns a one-based page of products with categories,
// optionally narrowed by a filter expression such as `price < 5.0`.
func (h *Handler) GetProductPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	pageSize, err := queryInt(r, "pageSize", 10)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	q := UnitOfWork(ctx).Products.Query(true).
		Include("Categories").
		OrderBy("product_nr ASC")

	if expr := r.URL.Query().Get("filter"); expr != "" && h.filters != nil {
		pred, err := h.filters.Product(expr)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		q = q.Filter(pred)
	}

	result, err := repository.ToPagedList[*domain.Product](ctx, q, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
