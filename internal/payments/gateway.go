package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/stitchkart/orders/internal/orders"
)

// Gateway is the pluggable payment capability. Settlement is external to
// this service; the lifecycle engine only records the returned status.
type Gateway interface {
	Authorize(ctx context.Context, orderID string, method orders.PaymentMethod, amountCents int64) (orders.PaymentStatus, string, error)
}

// MockGateway authorizes upi/card immediately and leaves cod pending
// until delivery. Stands in for the real provider in dev and tests.
type MockGateway struct{}

var _ Gateway = MockGateway{}

func (MockGateway) Authorize(ctx context.Context, orderID string, method orders.PaymentMethod, amountCents int64) (orders.PaymentStatus, string, error) {
	if method == orders.PayCOD {
		return orders.PaymentPending, "", nil
	}
	return orders.PaymentCompleted, "mock-" + uuid.NewString(), nil
}
