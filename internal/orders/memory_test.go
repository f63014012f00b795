package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func seedOrder(t *testing.T, m *MemoryStore, userID string) *Order {
	t.Helper()
	now := time.Now().UTC()
	o := &Order{
		ID:            "ord-" + userID + "-" + now.Format("150405.000000000"),
		Number:        NewOrderNumber(now),
		UserID:        userID,
		Lines:         []OrderLine{{ProductID: "p1", Size: "M", Qty: 1, UnitPriceCents: 1000}},
		PaymentMethod: PayCOD,
		PaymentStatus: PaymentPending,
		Status:        StatusPending,
		TotalCents:    1000,
		Version:       1,
		OrderedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.Create(context.Background(), o); err != nil {
		t.Fatalf("create: %v", err)
	}
	return o
}

func TestMemoryStore_Lookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	o := seedOrder(t, m, "u1")

	got, err := m.Get(ctx, o.ID)
	if err != nil || got.ID != o.ID {
		t.Fatalf("get: %v", err)
	}
	got, err = m.GetByNumber(ctx, o.Number)
	if err != nil || got.ID != o.ID {
		t.Fatalf("get by number: %v", err)
	}
	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, err := m.ListByUser(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
}

func TestMemoryStore_DuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now().UTC()
	mk := func(id, userID string) *Order {
		return &Order{
			ID:         id,
			Number:     NewOrderNumber(now),
			ExternalID: "client-key",
			UserID:     userID,
			Status:     StatusPending,
			Version:    1,
			OrderedAt:  now,
			UpdatedAt:  now,
		}
	}

	if err := m.Create(ctx, mk("ord-ext-1", "u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Create(ctx, mk("ord-ext-2", "u1")); !errors.Is(err, ErrDuplicateExternalID) {
		t.Fatalf("expected ErrDuplicateExternalID, got %v", err)
	}
	// same key, different user is a different scope
	if err := m.Create(ctx, mk("ord-ext-3", "u2")); err != nil {
		t.Fatalf("other user: %v", err)
	}
}

func TestMemoryStore_CopyOut(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	o := seedOrder(t, m, "u1")

	got, _ := m.Get(ctx, o.ID)
	got.Status = StatusDelivered
	got.Lines[0].Qty = 99

	again, _ := m.Get(ctx, o.ID)
	if again.Status != StatusPending || again.Lines[0].Qty != 1 {
		t.Fatalf("store leaked internal state: %+v", again)
	}
}

func TestApplyTransition_VersionBumps(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	o := seedOrder(t, m, "u1")

	steps := []Status{StatusConfirmed, StatusShipped, StatusDelivered}
	version := o.Version
	for _, to := range steps {
		updated, err := m.ApplyTransition(ctx, o.ID, version, to, PaymentPending)
		if err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
		if updated.Version != version+1 {
			t.Fatalf("version %d -> %d, want +1", version, updated.Version)
		}
		version = updated.Version
	}
}

func TestApplyTransition_StaleVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	o := seedOrder(t, m, "u1")

	if _, err := m.ApplyTransition(ctx, o.ID, o.Version, StatusConfirmed, PaymentPending); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := m.ApplyTransition(ctx, o.ID, o.Version, StatusShipped, PaymentPending); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

// Two racing writers submitting the same expected version: exactly one
// wins, the other sees ErrVersionConflict.
func TestApplyTransition_ConcurrentCAS(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	o := seedOrder(t, m, "u1")

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, to := range []Status{StatusShipped, StatusCancelled} {
		wg.Add(1)
		go func(to Status) {
			defer wg.Done()
			_, err := m.ApplyTransition(ctx, o.ID, o.Version, to, PaymentPending)
			results <- err
		}(to)
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrVersionConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("want exactly one winner, got ok=%d conflict=%d", ok, conflict)
	}
}
