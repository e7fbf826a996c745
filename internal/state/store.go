package state

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store is the per-player game-state store. Put performs a compare-and-swap
// on Version: it persists the state with Version = expectedVersion + 1 and
// fails with ErrConflict when the stored version moved.
type Store interface {
	// Get returns the current state, or ErrNotFound for unknown players.
	Get(ctx context.Context, playerID uuid.UUID) (*PlayerState, error)
	// Put persists the state iff the stored version equals expectedVersion.
	Put(ctx context.Context, st *PlayerState, expectedVersion int64) error
	// Snapshot returns the durable state, bypassing any cache tiers.
	Snapshot(ctx context.Context, playerID uuid.UUID) (*PlayerState, error)
}

// MemoryStore is a process-local Store used in dev mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[uuid.UUID]*PlayerState
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[uuid.UUID]*PlayerState)}
}

func (m *MemoryStore) Get(ctx context.Context, playerID uuid.UUID) (*PlayerState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	return st.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, st *PlayerState, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.states[st.PlayerID]
	if ok && current.Version != expectedVersion {
		return ErrConflict
	}
	if !ok && expectedVersion != 0 {
		return ErrConflict
	}

	st.Version = expectedVersion + 1
	m.states[st.PlayerID] = st.Clone()
	return nil
}

func (m *MemoryStore) Snapshot(ctx context.Context, playerID uuid.UUID) (*PlayerState, error) {
	return m.Get(ctx, playerID)
}
