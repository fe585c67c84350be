package session

import (
	"context"
	"sync"
	"time"

	"readmegen/internal/models"
)

// MemoryStore keeps state in process. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*models.SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*models.SessionState)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*models.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[id]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, state *models.SessionState) error {
	m.mu.Lock()
	m.states[state.ID] = state.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.states, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, state := range m.states {
		if state.UpdatedAt.Before(before) {
			delete(m.states, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Len reports the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
