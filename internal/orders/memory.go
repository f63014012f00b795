package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps orders in process memory. Used by tests and by the
// single-node dev setup; the postgres store is the production path.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]Order
	byNumber   map[string]string // number -> id
	byExternal map[string]string // userID+"\x00"+externalID -> id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]Order),
		byNumber:   make(map[string]string),
		byExternal: make(map[string]string),
	}
}

var _ Store = (*MemoryStore)(nil)

func extKey(userID, externalID string) string { return userID + "\x00" + externalID }

func (m *MemoryStore) Create(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ExternalID != "" {
		if _, taken := m.byExternal[extKey(o.UserID, o.ExternalID)]; taken {
			return ErrDuplicateExternalID
		}
	}
	m.byID[o.ID] = cloneOrder(*o)
	m.byNumber[o.Number] = o.ID
	if o.ExternalID != "" {
		m.byExternal[extKey(o.UserID, o.ExternalID)] = o.ID
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (m *MemoryStore) GetByNumber(ctx context.Context, number string) (*Order, error) {
	m.mu.RLock()
	id, ok := m.byNumber[number]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *MemoryStore) GetByExternalID(ctx context.Context, userID, externalID string) (*Order, error) {
	m.mu.RLock()
	id, ok := m.byExternal[extKey(userID, externalID)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0)
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	// newest first, id as tiebreaker for stable output
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderedAt.Equal(out[j].OrderedAt) {
			return out[i].OrderedAt.After(out[j].OrderedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) ApplyTransition(ctx context.Context, id string, expectedVersion int64, to Status, pay PaymentStatus) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	o.Status = to
	o.PaymentStatus = pay
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	m.byID[id] = o
	cp := cloneOrder(o)
	return &cp, nil
}

func cloneOrder(o Order) Order {
	o.Lines = append([]OrderLine(nil), o.Lines...)
	return o
}
