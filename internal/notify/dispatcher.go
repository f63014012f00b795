package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchkart/orders/internal/orders"
)

// Dispatcher fans lifecycle transitions out to the role feeds. Emission is
// best-effort: a failed append is logged and never fails the mutation that
// triggered it.
type Dispatcher struct {
	Feed Feed
	Log  *zap.Logger
}

// Emit appends one event to a role feed.
func (d *Dispatcher) Emit(ctx context.Context, role Role, orderID, message string) {
	e := Event{
		ID:        uuid.NewString(),
		Role:      role,
		Message:   message,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.Feed.Append(ctx, e); err != nil {
		d.Log.Error("notification append failed",
			zap.String("role", string(role)),
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

// OrderCreated notifies the owning user and the admin feed.
func (d *Dispatcher) OrderCreated(ctx context.Context, o *orders.Order) {
	d.Emit(ctx, RoleUser, o.ID, fmt.Sprintf("Order %s placed", o.Number))
	d.Emit(ctx, RoleAdmin, o.ID, fmt.Sprintf("New order %s from user %s", o.Number, o.UserID))
}

// StatusChanged notifies the user on every transition and additionally
// the admin feed on cancellation.
func (d *Dispatcher) StatusChanged(ctx context.Context, o *orders.Order, from orders.Status) {
	d.Emit(ctx, RoleUser, o.ID, fmt.Sprintf("Order %s is now %s", o.Number, o.Status))
	if o.Status == orders.StatusCancelled {
		d.Emit(ctx, RoleAdmin, o.ID, fmt.Sprintf("Order %s cancelled (was %s)", o.Number, from))
	}
}
