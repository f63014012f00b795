package inventory

import (
	"context"
	"sync"
)

// MemoryLedger keeps stock in process memory behind one mutex, which makes
// every reserve/release on the ledger atomic with respect to concurrent
// callers. Reservation records per order back the idempotent release.
type MemoryLedger struct {
	mu       sync.Mutex
	products map[string]*Product
	reserved map[string][]Line // orderID -> reserved lines
	released map[string]bool   // orderID -> already credited back
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		products: make(map[string]*Product),
		reserved: make(map[string][]Line),
		released: make(map[string]bool),
	}
}

var _ Ledger = (*MemoryLedger)(nil)

// AddProduct seeds or replaces a product record.
func (m *MemoryLedger) AddProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock := make(map[string]int, len(p.Stock))
	for k, v := range p.Stock {
		stock[k] = v
	}
	p.Stock = stock
	m.products[p.ID] = &p
}

func (m *MemoryLedger) Product(ctx context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	cp.Stock = make(map[string]int, len(p.Stock))
	for k, v := range p.Stock {
		cp.Stock[k] = v
	}
	return &cp, nil
}

// StockOf reports current stock for a (product, size) key. Test helper
// and admin read path.
func (m *MemoryLedger) StockOf(productID, size string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return 0
	}
	return p.Stock[size]
}

func (m *MemoryLedger) ReserveOrder(ctx context.Context, orderID string, lines []Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// retry short-circuit: this order already holds its reservation.
	// A released order falls through and reserves again (reinstatement).
	if _, ok := m.reserved[orderID]; ok && !m.released[orderID] {
		return nil
	}

	taken := make([]Line, 0, len(lines))
	for _, l := range lines {
		p, ok := m.products[l.ProductID]
		if !ok {
			m.rollback(taken)
			return &InsufficientStockError{ProductID: l.ProductID, Size: l.Size, Requested: l.Qty, Available: 0}
		}
		avail := p.Stock[l.Size]
		if avail < l.Qty {
			m.rollback(taken)
			return &InsufficientStockError{ProductID: l.ProductID, Size: l.Size, Requested: l.Qty, Available: avail}
		}
		p.Stock[l.Size] = avail - l.Qty
		taken = append(taken, l)
	}
	m.reserved[orderID] = append([]Line(nil), lines...)
	delete(m.released, orderID)
	return nil
}

// rollback credits back lines decremented earlier in the same reserve
// call. Caller holds the mutex.
func (m *MemoryLedger) rollback(taken []Line) {
	for _, l := range taken {
		m.products[l.ProductID].Stock[l.Size] += l.Qty
	}
}

func (m *MemoryLedger) ReleaseOrder(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released[orderID] {
		return false, nil
	}
	lines, ok := m.reserved[orderID]
	if !ok {
		return false, nil
	}
	for _, l := range lines {
		if p, ok := m.products[l.ProductID]; ok {
			p.Stock[l.Size] += l.Qty
		}
	}
	m.released[orderID] = true
	return true, nil
}
