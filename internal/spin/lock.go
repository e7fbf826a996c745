package spin

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	lockAcquireTimeout = 5 * time.Second
	redisLockTTL       = 15 * time.Second
	redisLockKeyBase   = "gemrush:lock:"
)

// playerLocks serializes spins per player within one process. Each player
// gets a one-slot channel; holding the slot is holding the lock. When a
// Redis client is present a SETNX lease is layered on top so two API nodes
// cannot spin the same player concurrently.
type playerLocks struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
	rdb   *redis.Client
}

func newPlayerLocks(rdb *redis.Client) *playerLocks {
	return &playerLocks{
		slots: make(map[uuid.UUID]chan struct{}),
		rdb:   rdb,
	}
}

// acquire blocks until the player's lock is held or the timeout elapses.
// The returned release function must be called exactly once.
func (pl *playerLocks) acquire(ctx context.Context, playerID uuid.UUID) (func(), error) {
	pl.mu.Lock()
	slot, ok := pl.slots[playerID]
	if !ok {
		slot = make(chan struct{}, 1)
		pl.slots[playerID] = slot
	}
	pl.mu.Unlock()

	timer := time.NewTimer(lockAcquireTimeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
	case <-timer.C:
		return nil, ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	lockToken, err := pl.acquireDistributed(ctx, playerID)
	if err != nil {
		<-slot
		return nil, err
	}

	return func() {
		pl.releaseDistributed(playerID, lockToken)
		<-slot
	}, nil
}

// acquireDistributed takes the Redis lease when configured. Lock loss after
// the TTL is tolerated: the state store's version CAS catches any write that
// slips past an expired lease.
func (pl *playerLocks) acquireDistributed(ctx context.Context, playerID uuid.UUID) (string, error) {
	if pl.rdb == nil {
		return "", nil
	}

	key := redisLockKeyBase + playerID.String()
	token := uuid.NewString()
	deadline := time.Now().Add(lockAcquireTimeout)

	for {
		ok, err := pl.rdb.SetNX(ctx, key, token, redisLockTTL).Result()
		if err != nil {
			log.Warn().Err(err).Msg("redis lock unavailable, proceeding on local lock")
			return "", nil
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockTimeout
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (pl *playerLocks) releaseDistributed(playerID uuid.UUID, token string) {
	if pl.rdb == nil || token == "" {
		return
	}

	// Delete only our own lease; an expired-and-reacquired key belongs to
	// someone else.
	const script = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0`
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pl.rdb.Eval(ctx, script, []string{redisLockKeyBase + playerID.String()}, token).Err(); err != nil {
		log.Warn().Err(err).Msg("redis lock release failed")
	}
}
