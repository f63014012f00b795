package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestLedger() *MemoryLedger {
	m := NewMemoryLedger()
	m.AddProduct(Product{
		ID: "p-tee", SKU: "TEE-01", Name: "Tee", PriceCents: 2500,
		Stock: map[string]int{"S": 5, "M": 10},
	})
	m.AddProduct(Product{
		ID: "p-cap", SKU: "CAP-01", Name: "Cap", PriceCents: 1500,
		Stock: map[string]int{"": 3},
	})
	return m
}

func TestReserveOrder_Decrements(t *testing.T) {
	ctx := context.Background()
	m := newTestLedger()

	err := m.ReserveOrder(ctx, "o1", []Line{
		{ProductID: "p-tee", Size: "M", Qty: 4},
		{ProductID: "p-cap", Size: "", Qty: 1},
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := m.StockOf("p-tee", "M"); got != 6 {
		t.Fatalf("tee stock = %d, want 6", got)
	}
	if got := m.StockOf("p-cap", ""); got != 2 {
		t.Fatalf("cap stock = %d, want 2", got)
	}
}

func TestReserveOrder_InsufficientRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newTestLedger()

	// first line fits, second does not; nothing may stay decremented
	err := m.ReserveOrder(ctx, "o1", []Line{
		{ProductID: "p-tee", Size: "S", Qty: 2},
		{ProductID: "p-cap", Size: "", Qty: 4},
	})
	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if ise.ProductID != "p-cap" || ise.Requested != 4 || ise.Available != 3 {
		t.Fatalf("unexpected detail: %+v", ise)
	}
	if got := m.StockOf("p-tee", "S"); got != 5 {
		t.Fatalf("tee stock = %d, want 5 after rollback", got)
	}
	if got := m.StockOf("p-cap", ""); got != 3 {
		t.Fatalf("cap stock = %d, want 3", got)
	}
}

func TestReserveOrder_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	m := newTestLedger()

	err := m.ReserveOrder(ctx, "o1", []Line{{ProductID: "nope", Qty: 1}})
	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
}

func TestReserveOrder_RetryIsNoop(t *testing.T) {
	ctx := context.Background()
	m := newTestLedger()
	lines := []Line{{ProductID: "p-tee", Size: "M", Qty: 3}}

	if err := m.ReserveOrder(ctx, "o1", lines); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := m.ReserveOrder(ctx, "o1", lines); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := m.StockOf("p-tee", "M"); got != 7 {
		t.Fatalf("stock = %d, want 7 (single decrement)", got)
	}
}

func TestReleaseOrder_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestLedger()

	if err := m.ReserveOrder(ctx, "o1", []Line{{ProductID: "p-tee", Size: "S", Qty: 2}}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	released, err := m.ReleaseOrder(ctx, "o1")
	if err != nil || !released {
		t.Fatalf("first release = %v %v, want true", released, err)
	}
	released, err = m.ReleaseOrder(ctx, "o1")
	if err != nil || released {
		t.Fatalf("second release = %v %v, want false", released, err)
	}
	if got := m.StockOf("p-tee", "S"); got != 5 {
		t.Fatalf("stock = %d, want 5 (no double credit)", got)
	}
}

func TestReserveOrder_AfterRelease(t *testing.T) {
	ctx := context.Background()
	m := newTestLedger()
	lines := []Line{{ProductID: "p-tee", Size: "S", Qty: 2}}

	if err := m.ReserveOrder(ctx, "o1", lines); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := m.ReleaseOrder(ctx, "o1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	// reinstated order takes its stock back
	if err := m.ReserveOrder(ctx, "o1", lines); err != nil {
		t.Fatalf("re-reserve: %v", err)
	}
	if got := m.StockOf("p-tee", "S"); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}

	// and the release cycle works again
	released, err := m.ReleaseOrder(ctx, "o1")
	if err != nil || !released {
		t.Fatalf("release after re-reserve = %v %v, want true", released, err)
	}
	if got := m.StockOf("p-tee", "S"); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestReleaseOrder_NoReservation(t *testing.T) {
	m := newTestLedger()
	released, err := m.ReleaseOrder(context.Background(), "never-reserved")
	if err != nil || released {
		t.Fatalf("got %v %v, want false nil", released, err)
	}
}

// Many goroutines race for the same pool; the ledger must never hand out
// more units than exist.
func TestReserveOrder_ConcurrentNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLedger()
	m.AddProduct(Product{ID: "p", SKU: "P", Name: "P", PriceCents: 100, Stock: map[string]int{"M": 7}})

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- m.ReserveOrder(ctx, fmt.Sprintf("o%d", i), []Line{{ProductID: "p", Size: "M", Qty: 1}})
		}(i)
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		}
	}
	if ok != 7 {
		t.Fatalf("%d reservations succeeded, want 7", ok)
	}
	if got := m.StockOf("p", "M"); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}
