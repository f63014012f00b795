package orders

import "context"

// Store persists order aggregates. Orders are never deleted; cancellation
// is a status, and every mutation goes through ApplyTransition so the
// version counter stays the single write path.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	// GetByExternalID resolves a client idempotency key scoped to a user.
	GetByExternalID(ctx context.Context, userID, externalID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ApplyTransition is a compare-and-swap on (id, expectedVersion): it
	// sets status and paymentStatus, bumps the version by one and returns
	// the updated order. ErrVersionConflict when the stored version moved.
	ApplyTransition(ctx context.Context, id string, expectedVersion int64, to Status, pay PaymentStatus) (*Order, error)
}
