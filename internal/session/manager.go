package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"readmegen/internal/models"
)

const DefaultTTL = 2 * time.Hour

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes every read-modify-write pass on a session. Requests for
// different sessions never wait on each other.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[string]*lockEntry),
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Store() Store {
	return m.store
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	entry := m.locks[id]
	if entry == nil {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	m.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		m.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// load returns the stored state, or fresh defaults when none exists or it has expired.
func (m *Manager) load(ctx context.Context, id string) (*models.SessionState, bool, error) {
	state, err := m.store.Load(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return m.fresh(id), true, nil
	case err != nil:
		return nil, false, err
	}
	if m.now().Sub(state.UpdatedAt) > m.ttl {
		return m.fresh(id), true, nil
	}
	return state, false, nil
}

func (m *Manager) fresh(id string) *models.SessionState {
	state := models.NewSessionState(id)
	state.CreatedAt = m.now()
	state.UpdatedAt = state.CreatedAt
	return state
}

// View returns a copy of the session state, creating it with defaults on first access.
func (m *Manager) View(ctx context.Context, id string) (*models.SessionState, error) {
	unlock := m.lock(id)
	defer unlock()

	state, created, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if created {
		if err := m.store.Save(ctx, state); err != nil {
			return nil, err
		}
	}
	return state.Clone(), nil
}

// Update runs fn on the session state while holding the session lock and saves
// the result. When fn returns an error nothing is saved.
func (m *Manager) Update(ctx context.Context, id string, fn func(*models.SessionState) error) (*models.SessionState, error) {
	unlock := m.lock(id)
	defer unlock()

	state, _, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	state.ID = id
	state.UpdatedAt = m.now()
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()
	return m.store.Delete(ctx, id)
}

// Sweep deletes sessions idle for longer than the TTL.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	return m.store.DeleteExpired(ctx, m.now().Add(-m.ttl))
}

func (m *Manager) Close() error {
	return m.store.Close()
}
