package store

import (
	"context"
	"sync"

	"github.com/lox/riichiscore/internal/match"
)

// MemoryStore holds the snapshot in process. It is used by serve when no
// persistence is wanted, and by tests.
type MemoryStore struct {
	mu    sync.Mutex
	saved *match.Snapshot
	saves int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*match.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return nil, ErrNotFound
	}
	s := m.saved.Clone()
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s match.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := s.Clone()
	m.saved = &c
	m.saves++
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = nil
	return nil
}

// Saves reports how many times Save has been called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
