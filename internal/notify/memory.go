package notify

import (
	"context"
	"sync"
)

type MemoryFeed struct {
	mu     sync.RWMutex
	byRole map[Role][]Event
	roleOf map[string]Role // event id -> role
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		byRole: make(map[Role][]Event),
		roleOf: make(map[string]Role),
	}
}

var _ Feed = (*MemoryFeed)(nil)

func (m *MemoryFeed) Append(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roleOf[e.ID]; ok {
		return nil // duplicate append, already delivered
	}
	m.byRole[e.Role] = append(m.byRole[e.Role], e)
	m.roleOf[e.ID] = e.Role
	return nil
}

func (m *MemoryFeed) Get(ctx context.Context, id string) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	role, ok := m.roleOf[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	for _, e := range m.byRole[role] {
		if e.ID == id {
			cp := e
			return &cp, nil
		}
	}
	return nil, ErrEventNotFound
}

func (m *MemoryFeed) List(ctx context.Context, role Role, sinceID string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := m.byRole[role]
	start := 0
	if sinceID != "" {
		for i, e := range events {
			if e.ID == sinceID {
				start = i + 1
				break
			}
		}
	}
	out := make([]Event, len(events)-start)
	copy(out, events[start:])
	return out, nil
}

func (m *MemoryFeed) MarkRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roleOf[id]
	if !ok {
		return ErrEventNotFound
	}
	events := m.byRole[role]
	for i := range events {
		if events[i].ID == id {
			events[i].Read = true
			return nil
		}
	}
	return ErrEventNotFound
}

func (m *MemoryFeed) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roleOf[id]
	if !ok {
		return ErrEventNotFound
	}
	events := m.byRole[role]
	for i := range events {
		if events[i].ID == id {
			m.byRole[role] = append(events[:i:i], events[i+1:]...)
			delete(m.roleOf, id)
			return nil
		}
	}
	return ErrEventNotFound
}

func (m *MemoryFeed) ClearAll(ctx context.Context, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byRole[role] {
		delete(m.roleOf, e.ID)
	}
	m.byRole[role] = nil
	return nil
}
