package state

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetUnknownPlayer(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePutAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	st := New(uuid.New())

	require.NoError(t, store.Put(ctx, st, 0))
	assert.Equal(t, int64(1), st.Version, "put must bump the version")

	got, err := store.Get(ctx, st.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestMemoryStoreCAS(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	st := New(uuid.New())
	require.NoError(t, store.Put(ctx, st, 0))

	t.Run("stale version rejected", func(t *testing.T) {
		stale := st.Clone()
		assert.ErrorIs(t, store.Put(ctx, stale, 0), ErrConflict)
	})

	t.Run("current version accepted", func(t *testing.T) {
		cur, err := store.Get(ctx, st.PlayerID)
		require.NoError(t, err)
		cur.Mode = ModeFreeSpins
		cur.FreeSpinsRemaining = 15
		require.NoError(t, store.Put(ctx, cur, cur.Version))
	})

	t.Run("new player requires version zero", func(t *testing.T) {
		other := New(uuid.New())
		assert.ErrorIs(t, store.Put(ctx, other, 3), ErrConflict)
	})
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	st := New(uuid.New())
	require.NoError(t, store.Put(ctx, st, 0))

	got, err := store.Get(ctx, st.PlayerID)
	require.NoError(t, err)
	got.Mode = ModeFreeSpins
	got.FreeSpinsRemaining = 99

	again, err := store.Get(ctx, st.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, ModeBase, again.Mode, "mutating a read copy must not touch the store")
}

func TestPlayerStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlayerState)
		wantErr bool
	}{
		{name: "fresh state valid", mutate: func(*PlayerState) {}},
		{
			name: "valid free spins",
			mutate: func(s *PlayerState) {
				s.Mode = ModeFreeSpins
				s.FreeSpinsRemaining = 10
				s.AccumulatedMultiplier = 3
			},
		},
		{
			name:    "base with leftover spins",
			mutate:  func(s *PlayerState) { s.FreeSpinsRemaining = 2 },
			wantErr: true,
		},
		{
			name:    "base with accumulated multiplier",
			mutate:  func(s *PlayerState) { s.AccumulatedMultiplier = 4 },
			wantErr: true,
		},
		{
			name: "free spins without remaining",
			mutate: func(s *PlayerState) {
				s.Mode = ModeFreeSpins
				s.FreeSpinsRemaining = 0
			},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			mutate:  func(s *PlayerState) { s.Mode = "bonus" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New(uuid.New())
			tt.mutate(st)
			err := st.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	id := uuid.New()
	spinID := uuid.New()
	st := New(id)
	st.LastSpinID = &spinID

	clone := st.Clone()
	other := uuid.New()
	clone.LastSpinID = &other

	assert.Equal(t, spinID, *st.LastSpinID, "clone must not share the spin ID pointer")
}
