package inventory

import (
	"context"
	"errors"
	"fmt"
)

// Line is one (product, size, qty) reservation unit. Size is empty for
// one-size products.
type Line struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Qty       int    `json:"qty"`
}

// Product carries the price snapshot source and per-size stock counts.
type Product struct {
	ID         string         `json:"id"`
	SKU        string         `json:"sku"`
	Name       string         `json:"name"`
	PriceCents int64          `json:"price_cents"`
	Stock      map[string]int `json:"stock"` // size label -> count, >= 0 always
}

var ErrProductNotFound = errors.New("product not found")

// InsufficientStockError reports the first line that could not be
// reserved. Nothing was decremented when this is returned.
type InsufficientStockError struct {
	ProductID string
	Size      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %q: requested %d, available %d",
		e.ProductID, e.Size, e.Requested, e.Available)
}

// Ledger owns stock. ReserveOrder is all-or-nothing per order: either every
// line is decremented or stock is untouched. ReleaseOrder credits back
// whatever was reserved for the order and is idempotent per order id; the
// bool reports whether anything was credited on this call.
type Ledger interface {
	Product(ctx context.Context, id string) (*Product, error)
	ReserveOrder(ctx context.Context, orderID string, lines []Line) error
	ReleaseOrder(ctx context.Context, orderID string) (bool, error)
}
