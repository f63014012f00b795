package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stitchkart/orders/internal/orders"
)

func seedOrder(t *testing.T, store *orders.MemoryStore) *orders.Order {
	t.Helper()
	now := time.Now().UTC()
	o := &orders.Order{
		ID:            "ord-1",
		Number:        orders.NewOrderNumber(now),
		UserID:        "u1",
		Lines:         []orders.OrderLine{{ProductID: "p1", Size: "M", Qty: 1, UnitPriceCents: 1000}},
		PaymentMethod: orders.PayCard,
		PaymentStatus: orders.PaymentCompleted,
		Status:        orders.StatusShipped,
		TotalCents:    1000,
		Version:       3,
		OrderedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.Create(context.Background(), o); err != nil {
		t.Fatalf("create: %v", err)
	}
	return o
}

func TestGetByIDOrNumber(t *testing.T) {
	ctx := context.Background()
	store := orders.NewMemoryStore()
	o := seedOrder(t, store)
	svc := &Service{Store: store}

	got, err := svc.GetByIDOrNumber(ctx, o.ID)
	if err != nil || got.ID != o.ID {
		t.Fatalf("by id: %v", err)
	}
	got, err = svc.GetByIDOrNumber(ctx, o.Number)
	if err != nil || got.ID != o.ID {
		t.Fatalf("by number: %v", err)
	}
	if got.Status != orders.StatusShipped {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestGetByIDOrNumber_NotFound(t *testing.T) {
	svc := &Service{Store: orders.NewMemoryStore()}
	if _, err := svc.GetByIDOrNumber(context.Background(), "SO-00000000-DEADBEEF"); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidate_NoRedis(t *testing.T) {
	store := orders.NewMemoryStore()
	o := seedOrder(t, store)
	svc := &Service{Store: store}
	svc.Invalidate(context.Background(), o) // must not panic without a cache
}

func TestGetByIDOrNumber_EmptyIdentifier(t *testing.T) {
	svc := &Service{Store: orders.NewMemoryStore()}
	if _, err := svc.GetByIDOrNumber(context.Background(), ""); !errors.Is(err, orders.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
