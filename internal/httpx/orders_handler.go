package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stitchkart/orders/internal/auth"
	"github.com/stitchkart/orders/internal/lifecycle"
	"github.com/stitchkart/orders/internal/orders"
	"github.com/stitchkart/orders/internal/tracking"
)

type OrdersHandler struct {
	Engine    *lifecycle.Engine
	Tracking  *tracking.Service
	JWTSecret string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	// identifier is the capability on the tracking route; no auth
	r.Get("/orders/track/{identifier}", h.track)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.Verifier(h.JWTSecret))
		pr.Post("/orders/create", h.create)
		pr.Get("/orders/my-orders", h.myOrders)
		pr.Put("/orders/{id}/cancel", h.cancel)

		pr.Group(func(ar chi.Router) {
			ar.Use(auth.RequireAdmin)
			ar.Put("/admin/orders/{id}/status", h.adminSetStatus)
		})
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req lifecycle.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid json"})
		return
	}
	o, err := h.Engine.Create(r.Context(), orders.Actor(id.Role), id.UserID, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "order": o})
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	list, err := h.Engine.ListByUser(r.Context(), id.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": list})
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	o, err := h.Engine.Cancel(r.Context(), orders.Actor(id.Role), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

type setStatusReq struct {
	OrderStatus orders.Status `json:"orderStatus"`
}

func (h *OrdersHandler) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req setStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid json"})
		return
	}
	o, err := h.Engine.SetStatus(r.Context(), orders.ActorAdmin, id.UserID, chi.URLParam(r, "id"), req.OrderStatus)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

func (h *OrdersHandler) track(w http.ResponseWriter, r *http.Request) {
	o, err := h.Tracking.GetByIDOrNumber(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}
