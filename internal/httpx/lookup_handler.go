package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gemilang/stone-orders/internal/orders"
)

type LookupHandler struct {
	Svc *orders.LookupService
}

type EmployeeResp struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LookupResp carries exactly one record, named by kind.
type LookupResp struct {
	Kind     string        `json:"kind"`
	Order    *OrderResp    `json:"order,omitempty"`
	Employee *EmployeeResp `json:"employee,omitempty"`
	Stone    *StoneResp    `json:"stone,omitempty"`
}

func (h *LookupHandler) Register(r *chi.Mux) {
	r.Get("/lookup", h.lookup)
}

func (h *LookupHandler) lookup(w http.ResponseWriter, r *http.Request) {
	kind := orders.LookupKind(r.URL.Query().Get("kind"))
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Svc.Lookup(ctx, kind, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := LookupResp{Kind: string(res.Kind)}
	switch res.Kind {
	case orders.LookupOrder:
		o := toOrderResp(res.Order)
		resp.Order = &o
	case orders.LookupEmployee:
		e := res.Employee
		resp.Employee = &EmployeeResp{ID: e.ID, Name: e.Name, Email: e.Email, Role: e.Role}
	case orders.LookupStone:
		st := res.Stone
		resp.Stone = &StoneResp{ID: st.ID, Name: st.Name, Type: st.Type, PriceCents: st.PriceCents, Stock: st.Stock}
	}
	writeJSON(w, http.StatusOK, resp)
}
