// Package inboxapi is a reference implementation of the inbox REST API the
// dashboard talks to: ticket listing, single-field updates and the
// precomputed metrics document.
package inboxapi

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

var ErrNotFound = errors.New("ticket not found")

type Store interface {
	// List returns every ticket ordered by id.
	List(ctx context.Context) ([]types.Ticket, error)
	// Update applies the non-empty fields of patch and returns the result.
	Update(ctx context.Context, id int64, patch types.TicketPatch) (types.Ticket, error)
	Count(ctx context.Context) (int64, error)
	// Insert adds tickets; a zero ID is assigned by the store.
	Insert(ctx context.Context, tickets []types.Ticket) error
	Close() error
}

// MemoryStore keeps tickets in process. Used for development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	tickets map[int64]types.Ticket
	nextID  int64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[int64]types.Ticket), nextID: 1, now: time.Now}
}

func (m *MemoryStore) List(ctx context.Context) ([]types.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b types.Ticket) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, id int64, patch types.TicketPatch) (types.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return types.Ticket{}, ErrNotFound
	}
	if patch.Status != nil && *patch.Status != "" {
		t.Status = *patch.Status
	}
	if patch.Priority != nil && *patch.Priority != "" {
		t.Priority = *patch.Priority
	}
	m.tickets[id] = t
	return t, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tickets)), nil
}

func (m *MemoryStore) Insert(ctx context.Context, tickets []types.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tickets {
		if t.ID == 0 {
			t.ID = m.nextID
		}
		if t.ID >= m.nextID {
			m.nextID = t.ID + 1
		}
		if t.CreatedAt == nil {
			t.CreatedAt = &types.Timestamp{Time: m.now().UTC()}
		}
		m.tickets[t.ID] = t
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
