package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/platinummonkey/verihub/pkg/state"
)

// MemoryStore is an in-process Store for tests and single-node
// development. Values are held in their serialized form so every Get
// returns an independent copy, matching the distributed store's
// behavior.
type MemoryStore struct {
	mu      sync.Mutex
	records map[state.SessionID][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[state.SessionID][]byte)}
}

// Insert stores the first state for a fresh session id.
func (m *MemoryStore) Insert(ctx context.Context, id state.SessionID, s state.State) error {
	data, err := state.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; ok {
		return ErrSessionExists
	}
	m.records[id] = data
	return nil
}

// Replace swaps the stored value for an existing session.
func (m *MemoryStore) Replace(ctx context.Context, id state.SessionID, s state.State) error {
	data, err := state.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrSessionNotFound
	}
	m.records[id] = data
	return nil
}

// Get loads the current state.
func (m *MemoryStore) Get(ctx context.Context, id state.SessionID) (state.State, error) {
	m.mu.Lock()
	data, ok := m.records[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s, err := state.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return s, nil
}

// Has reports whether the session id is present.
func (m *MemoryStore) Has(ctx context.Context, id state.SessionID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok, nil
}
