package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/gemilang/stone-orders/internal/orders"
	"github.com/gemilang/stone-orders/internal/redisx"
)

type OrdersHandler struct {
	Svc   *orders.Service
	Cache *redis.Client // optional fast path; DB is the source of truth
}

type CreateOrderReq struct {
	CustomerID int64              `json:"customer_id"`
	EmployeeID *int64             `json:"employee_id,omitempty"`
	Lines      []orders.LineInput `json:"lines"`
}

type CreateOrderResp struct {
	OrderID int64 `json:"order_id"`
}

type UpdateStatusReq struct {
	Status string `json:"status"`
}

type AssignReq struct {
	EmployeeID int64 `json:"employee_id"`
}

type CancelReq struct {
	CustomerID int64 `json:"customer_id"`
}

type OrderLineResp struct {
	StoneID        int64 `json:"stone_id"`
	Qty            int64 `json:"qty"`
	UnitPriceCents int64 `json:"unit_price_cents"`
	SubtotalCents  int64 `json:"subtotal_cents"`
}

type OrderResp struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	EmployeeID *int64          `json:"employee_id,omitempty"`
	Status     string          `json:"status"`
	TotalCents int64           `json:"total_cents"`
	OrderDate  time.Time       `json:"order_date"`
	Lines      []OrderLineResp `json:"lines"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Post("/customer-orders", h.createCustomerOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Post("/orders/{id}/assign", h.assignEmployee)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Get("/stones", h.listStones)
}

func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, orders.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, orders.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, orders.ErrNotOwner):
		code = http.StatusForbidden
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrInsufficientStock):
		code = http.StatusConflict
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id", orders.ErrValidation)
	}
	return id, nil
}

func toOrderResp(o *orders.Order) OrderResp {
	resp := OrderResp{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		EmployeeID: o.EmployeeID,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		OrderDate:  o.OrderDate,
		Lines:      make([]OrderLineResp, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResp{
			StoneID:        l.StoneID,
			Qty:            l.Qty,
			UnitPriceCents: l.UnitPriceCents,
			SubtotalCents:  l.SubtotalCents(),
		})
	}
	return resp
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID int64, status orders.Status) {
	if h.Cache == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Cache.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, status), redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := h.Svc.CreateOrder(ctx, req.CustomerID, req.Lines, req.EmployeeID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, orderID, orders.StatusPending)
	writeJSON(w, http.StatusCreated, CreateOrderResp{OrderID: orderID})
}

func (h *OrdersHandler) createCustomerOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := h.Svc.CreateCustomerOrder(ctx, req.CustomerID, req.Lines)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, orderID, orders.StatusPending)
	writeJSON(w, http.StatusCreated, CreateOrderResp{OrderID: orderID})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

// getOrderStatus serves from the cache first, DB as fallback.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Cache != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, id)
		if s, err := h.Cache.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}
	o, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, id, o.Status)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(o.Status)})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st := orders.Status(req.Status)
	if err := h.Svc.UpdateStatus(ctx, id, st); err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, id, st)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(st)})
}

func (h *OrdersHandler) assignEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req AssignReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.AssignEmployee(ctx, id, req.EmployeeID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"employee_id": req.EmployeeID})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req CancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.CancelOrder(ctx, id, req.CustomerID); err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, id, orders.StatusCanceled)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(orders.StatusCanceled)})
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.DeleteOrder(ctx, id); err != nil {
		writeErr(w, err)
		return
	}
	if h.Cache != nil {
		_ = h.Cache.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Err()
	}
	w.WriteHeader(http.StatusNoContent)
}

type StoneResp struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	PriceCents int64  `json:"price_cents"`
	Stock      int64  `json:"stock"`
}

func (h *OrdersHandler) listStones(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stones, err := h.Svc.ListStones(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]StoneResp, 0, len(stones))
	for _, s := range stones {
		out = append(out, StoneResp{ID: s.ID, Name: s.Name, Type: s.Type, PriceCents: s.PriceCents, Stock: s.Stock})
	}
	writeJSON(w, http.StatusOK, out)
}
