package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gemilang/stone-orders/internal/orders"
)

type CustomOrdersHandler struct {
	Svc *orders.CustomOrderService
}

type SubmitCustomOrderReq struct {
	CustomerID int64 `json:"customer_id"`
	orders.CustomOrderInput
}

type CustomOrderResp struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	StoneType     string    `json:"stone_type"`
	Description   string    `json:"description"`
	SizeMM        int64     `json:"size_mm"`
	Qty           int64     `json:"qty"`
	Status        string    `json:"status"`
	LinkedOrderID *int64    `json:"linked_order_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *CustomOrdersHandler) Register(r *chi.Mux) {
	r.Post("/custom-orders", h.submit)
	r.Get("/custom-orders/{id}", h.get)
	r.Post("/custom-orders/{id}/approve", h.approve)
	r.Post("/custom-orders/{id}/reject", h.reject)
	r.Post("/custom-orders/{id}/convert", h.convert)
}

func (h *CustomOrdersHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitCustomOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := h.Svc.Submit(ctx, req.CustomerID, req.CustomOrderInput)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"custom_order_id": id})
}

func (h *CustomOrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	co, err := h.Svc.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CustomOrderResp{
		ID:            co.ID,
		CustomerID:    co.CustomerID,
		StoneType:     co.StoneType,
		Description:   co.Description,
		SizeMM:        co.SizeMM,
		Qty:           co.Qty,
		Status:        string(co.Status),
		LinkedOrderID: co.LinkedOrderID,
		CreatedAt:     co.CreatedAt,
	})
}

func (h *CustomOrdersHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Approve, orders.CustomApproved)
}

func (h *CustomOrdersHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Reject, orders.CustomRejected)
}

func (h *CustomOrdersHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) error, to orders.CustomStatus) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := fn(ctx, id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(to)})
}

func (h *CustomOrdersHandler) convert(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := h.Svc.Convert(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateOrderResp{OrderID: orderID})
}
