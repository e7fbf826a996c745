package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	localTTL     = 30 * time.Second
	redisTTL     = 5 * time.Minute
	redisKeyBase = "gemrush:state:"
)

// CachedStore layers a bounded in-process cache and an optional Redis tier
// in front of a durable Store. Reads prefer the caches and fill them from
// the durable row on a miss; writes drop both tiers instead of filling
// them, because a Put may run inside a caller-owned transaction whose
// commit is not yet decided. Snapshot always goes to the backing store.
type CachedStore struct {
	backing Store
	local   *ristretto.Cache[string, *PlayerState]
	rdb     *redis.Client
}

// NewCachedStore wraps backing with both cache tiers. rdb may be nil, in
// which case only the local tier is used.
func NewCachedStore(backing Store, rdb *redis.Client) (*CachedStore, error) {
	local, err := ristretto.NewCache(&ristretto.Config[string, *PlayerState]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedStore{backing: backing, local: local, rdb: rdb}, nil
}

func (s *CachedStore) Get(ctx context.Context, playerID uuid.UUID) (*PlayerState, error) {
	key := playerID.String()

	if st, ok := s.local.Get(key); ok {
		return st.Clone(), nil
	}

	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, redisKeyBase+key).Bytes()
		if err == nil {
			var st PlayerState
			if jerr := json.Unmarshal(raw, &st); jerr == nil {
				s.local.SetWithTTL(key, st.Clone(), 1, localTTL)
				return &st, nil
			}
		} else if err != redis.Nil {
			log.Warn().Err(err).Msg("redis state read failed, falling through")
		}
	}

	st, err := s.backing.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, key, st)
	return st, nil
}

// Put writes through to the backing store and invalidates both cache tiers.
// Filling here would be wrong: when the backing write is part of a pending
// transaction the row is not durable until commit, and a later rollback
// would leave the caches serving a state that never existed. The next Get
// repopulates from whatever the durable store actually holds.
func (s *CachedStore) Put(ctx context.Context, st *PlayerState, expectedVersion int64) error {
	err := s.backing.Put(ctx, st, expectedVersion)
	s.invalidate(ctx, st.PlayerID.String())
	return err
}

// Snapshot bypasses both cache tiers and reads the durable store directly.
func (s *CachedStore) Snapshot(ctx context.Context, playerID uuid.UUID) (*PlayerState, error) {
	return s.backing.Snapshot(ctx, playerID)
}

func (s *CachedStore) fill(ctx context.Context, key string, st *PlayerState) {
	s.local.SetWithTTL(key, st.Clone(), 1, localTTL)
	if s.rdb != nil {
		raw, err := json.Marshal(st)
		if err != nil {
			return
		}
		if err := s.rdb.Set(ctx, redisKeyBase+key, raw, redisTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("redis state write failed")
		}
	}
}

func (s *CachedStore) invalidate(ctx context.Context, key string) {
	s.local.Del(key)
	if s.rdb != nil {
		if err := s.rdb.Del(ctx, redisKeyBase+key).Err(); err != nil {
			log.Warn().Err(err).Msg("redis state invalidation failed")
		}
	}
}
