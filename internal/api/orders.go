package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/opensource-finance/storefront/internal/domain"
)

// CreateOrderRequest is the request body for POST /api/orders.
type CreateOrderRequest struct {
	OrderNr    string           `json:"orderNr"`
	CustomerID int64            `json:"customerId"`
	OrderType  domain.OrderType `json:"orderType"`
}

// UpdateOrderRequest is the request body for PUT /api/orders/{id}.
type UpdateOrderRequest struct {
	ID         int64            `json:"id"`
	RowVersion string           `json:"rowVersion"`
	OrderNr    string           `json:"orderNr"`
	CustomerID int64            `json:"customerId"`
	OrderType  domain.OrderType `json:"orderType"`
}

// ListOrders returns all orders with customer and items, newest first.
// An optional filter expression narrows the result.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var match func(*domain.Order) bool
	if expr := r.URL.Query().Get("filter"); expr != "" && h.filters != nil {
		pred, err := h.filters.Order(expr)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		match = pred
	}

	orders, err := UnitOfWork(ctx).Orders.GetAllWithDetails(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if match != nil {
		kept := orders[:0]
		for _, o := range orders {
			if match(o) {
				kept = append(kept, o)
			}
		}
		orders = kept
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

// GetOrderPage returns a zero-based page of order summaries filtered by
// customer last name.
func (h *Handler) GetOrderPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	pageSize, err := queryInt(r, "pageSize", 10)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	summaries, err := UnitOfWork(ctx).Orders.GetSummaryPage(ctx, r.URL.Query().Get("nameFilter"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(summaries))
}

// CountOrders counts the orders matching the customer name filter.
func (h *Handler) CountOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := UnitOfWork(ctx)

	count, err := u.Orders.Count(ctx, u.Orders.ByCustomerName(r.URL.Query().Get("nameFilter")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, count)
}

// GetSalesStatistic returns the sales statistic, served from cache when possible.
func (h *Handler) GetSalesStatistic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		stat *domain.SalesStatistic
		err  error
	)
	if h.stats != nil {
		stat, err = h.stats.SalesStatistic(ctx, UnitOfWork(ctx))
	} else {
		stat, err = UnitOfWork(ctx).Orders.GetSalesStatistic(ctx)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stat)
}

// GetOrder returns one order with customer and items.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	order, err := UnitOfWork(ctx).Orders.Query(true).
		Include("Customer", "OrderItems.Product").
		Where("id = ?", id).
		First(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if order == nil {
		writeNotFound(w, "order", id)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// CreateOrder stores a new order dated now.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := UnitOfWork(ctx)

	var req CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.OrderType == "" {
		req.OrderType = domain.OrderTypeStandard
	}
	if req.CustomerID != 0 {
		exists, err := u.Customers.Exists(ctx, req.CustomerID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !exists {
			writeBadRequest(w, "customer does not exist")
			return
		}
	}

	order := &domain.Order{
		OrderNr:    req.OrderNr,
		Date:       time.Now().UTC(),
		CustomerID: req.CustomerID,
		OrderType:  req.OrderType,
	}
	if _, err := u.Orders.Add(order); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("order created", "id", order.ID, "order_nr", order.OrderNr)
	writeJSON(w, http.StatusCreated, order)
}

// UpdateOrder overwrites an order when the client's row version is current.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := UnitOfWork(ctx)

	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req UpdateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.ID != id {
		writeBadRequest(w, "id in body does not match the URL")
		return
	}
	if req.RowVersion == "" {
		writeBadRequest(w, "rowVersion is required")
		return
	}

	order, err := u.Orders.GetByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if order == nil {
		writeNotFound(w, "order", id)
		return
	}

	if req.CustomerID != order.CustomerID {
		exists, err := u.Customers.Exists(ctx, req.CustomerID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !exists {
			writeBadRequest(w, "customer does not exist")
			return
		}
	}

	// The client's version is the one checked against the row.
	order.RowVersion = req.RowVersion
	order.OrderNr = req.OrderNr
	order.CustomerID = req.CustomerID
	order.OrderType = req.OrderType

	if _, err := u.Orders.Update(order); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("order updated", "id", order.ID, "row_version", order.RowVersion)
	writeJSON(w, http.StatusOK, order)
}

// DeleteOrder removes an order together with its items.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := UnitOfWork(ctx)

	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	found, err := u.Orders.Delete(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "order", id)
		return
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("order deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}
