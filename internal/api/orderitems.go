package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/opensource-finance/storefront/internal/domain"
)

// CreateOrderItemRequest is the request body for POST /api/orderitems.
type CreateOrderItemRequest struct {
	OrderID   int64 `json:"orderId"`
	ProductID int64 `json:"productId"`
	Amount    int   `json:"amount"`
}

// ListOrderItems returns the items of ?orderId= ordered by product name.
func (h *Handler) ListOrderItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := strconv.ParseInt(r.URL.Query().Get("orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		writeBadRequest(w, "query parameter orderId is required")
		return
	}

	items, err := UnitOfWork(ctx).OrderItems.GetByOrderID(ctx, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// GetOrderItem returns one item with its product.
func (h *Handler) GetOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	item, err := UnitOfWork(ctx).OrderItems.Query(true).
		Include("Product").
		Where("id = ?", id).
		First(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		writeNotFound(w, "order item", id)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateOrderItem adds a product line to an existing order.
func (h *Handler) CreateOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := UnitOfWork(ctx)

	var req CreateOrderItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if req.OrderID != 0 {
		exists, err := u.Orders.Exists(ctx, req.OrderID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !exists {
			writeBadRequest(w, "order does not exist")
			return
		}
	}
	if req.ProductID != 0 {
		exists, err := u.Products.Exists(ctx, req.ProductID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !exists {
			writeBadRequest(w, "product does not exist")
			return
		}
	}

	item := &domain.OrderItem{
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		Amount:    req.Amount,
	}
	if _, err := u.OrderItems.Insert(item); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("order item created", "id", item.ID, "order_id", item.OrderID)
	writeJSON(w, http.StatusCreated, item)
}

// DeleteOrderItem removes one item.
func (h *Handler) DeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := UnitOfWork(ctx)

	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	exists, err := u.OrderItems.Exists(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !exists {
		writeNotFound(w, "order item", id)
		return
	}
	if err := u.OrderItems.DeleteByID(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("order item deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}
