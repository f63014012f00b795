package notify

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

type Event struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	OrderID   string    `json:"order_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrEventNotFound = errors.New("notification not found")

// Feed is the durable, per-role, append-only notification sink. Within a
// role events come back in insertion order; ids are unique and a second
// Append with a known id is a no-op, which is what makes delivery to the
// feed exactly-once under producer retries.
type Feed interface {
	Append(ctx context.Context, e Event) error
	Get(ctx context.Context, id string) (*Event, error)
	// List returns the role's events after sinceID in creation order;
	// empty sinceID means everything.
	List(ctx context.Context, role Role, sinceID string) ([]Event, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context, role Role) error
}
