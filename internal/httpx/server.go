package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stitchkart/orders/internal/inventory"
	"github.com/stitchkart/orders/internal/notify"
	"github.com/stitchkart/orders/internal/orders"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errStatus(err), map[string]any{"success": false, "message": err.Error()})
}

// errStatus maps the error taxonomy to HTTP codes: validation and stock
// shortfalls 400, forbidden transitions 403, unknown identifiers 404,
// version conflicts 409.
func errStatus(err error) int {
	var shortfall *inventory.InsufficientStockError
	switch {
	case errors.As(err, &shortfall), errors.Is(err, orders.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrForbiddenTransition):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, notify.ErrEventNotFound),
		errors.Is(err, inventory.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
