package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stitchkart/orders/internal/auth"
	"github.com/stitchkart/orders/internal/notify"
)

type NotificationsHandler struct {
	Feed       notify.Feed
	Dispatcher *notify.Dispatcher
	JWTSecret  string
}

func (h *NotificationsHandler) Register(r *chi.Mux) {
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Verifier(h.JWTSecret))
		pr.Get("/notifications", h.list)
		pr.Patch("/notifications/{id}/read", h.markRead)
		pr.Delete("/notifications/{id}", h.delete)
		pr.Delete("/notifications", h.clearAll)

		pr.Group(func(ar chi.Router) {
			ar.Use(auth.RequireAdmin)
			ar.Post("/notifications", h.broadcast)
		})
	})
}

func roleOf(r *http.Request) notify.Role {
	id, _ := auth.FromContext(r.Context())
	return notify.Role(id.Role)
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	events, err := h.Feed.List(r.Context(), roleOf(r), r.URL.Query().Get("since"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "notifications": events})
}

type broadcastReq struct {
	Message        string      `json:"message"`
	TargetRole     notify.Role `json:"targetRole"`
	RelatedOrderID string      `json:"relatedOrderId,omitempty"`
}

func (h *NotificationsHandler) broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid json"})
		return
	}
	if req.Message == "" || !req.TargetRole.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "message and targetRole required"})
		return
	}
	h.Dispatcher.Emit(r.Context(), req.TargetRole, req.RelatedOrderID, req.Message)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

// ownEvent resolves the event only when it sits in the caller's role
// feed; other feeds are invisible, not forbidden.
func (h *NotificationsHandler) ownEvent(r *http.Request) (*notify.Event, error) {
	e, err := h.Feed.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if e.Role != roleOf(r) {
		return nil, notify.ErrEventNotFound
	}
	return e, nil
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	e, err := h.ownEvent(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Feed.MarkRead(r.Context(), e.ID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *NotificationsHandler) delete(w http.ResponseWriter, r *http.Request) {
	e, err := h.ownEvent(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Feed.Delete(r.Context(), e.ID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *NotificationsHandler) clearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Feed.ClearAll(r.Context(), roleOf(r)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
