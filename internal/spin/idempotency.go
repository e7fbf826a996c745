package spin

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	idemTTL     = 5 * time.Minute
	idemKeyBase = "gemrush:idem:"
)

// idemCache maps client request IDs to completed spin IDs so a retried
// request returns the original result instead of double-spinning. Redis is
// the shared tier; a local cache covers single-node setups and Redis
// outages. After the TTL expires the controller falls back to looking the
// request up in the spin_results table.
type idemCache struct {
	local *ristretto.Cache[string, uuid.UUID]
	rdb   *redis.Client
}

func newIdemCache(rdb *redis.Client) (*idemCache, error) {
	local, err := ristretto.NewCache(&ristretto.Config[string, uuid.UUID]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &idemCache{local: local, rdb: rdb}, nil
}

func (c *idemCache) lookup(ctx context.Context, requestID string) (uuid.UUID, bool) {
	if id, ok := c.local.Get(requestID); ok {
		return id, true
	}
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, idemKeyBase+requestID).Result()
		if err == nil {
			if id, perr := uuid.Parse(raw); perr == nil {
				c.local.SetWithTTL(requestID, id, 1, idemTTL)
				return id, true
			}
		} else if err != redis.Nil {
			log.Warn().Err(err).Msg("redis idempotency read failed")
		}
	}
	return uuid.Nil, false
}

func (c *idemCache) store(ctx context.Context, requestID string, spinID uuid.UUID) {
	c.local.SetWithTTL(requestID, spinID, 1, idemTTL)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, idemKeyBase+requestID, spinID.String(), idemTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("redis idempotency write failed")
		}
	}
}
