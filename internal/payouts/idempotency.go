package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/redis"
)

const idempotencyScope = "payout-webhook"

// IdempotencyGuard dedupes webhook deliveries on the (reference_code, status)
// pair. The partner contract carries no stable event id, so the pair is the
// only dedup key available.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{store: store, ttl: ttl}
}

func (g *IdempotencyGuard) key(referenceCode, status string) string {
	return g.store.IdempotencyKey(idempotencyScope, fmt.Sprintf("%s:%s", referenceCode, status))
}

// CheckAndMark claims the delivery. It returns true when this delivery is the
// first one seen for the pair; false means a duplicate.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, referenceCode, status string) (bool, error) {
	if g == nil || g.store == nil {
		return true, nil
	}
	fresh, err := g.store.SetNX(ctx, g.key(referenceCode, status), time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "claim idempotency key")
	}
	return fresh, nil
}

// Release frees the claim so the partner's retry can be processed after a
// failed attempt.
func (g *IdempotencyGuard) Release(ctx context.Context, referenceCode, status string) {
	if g == nil || g.store == nil {
		return
	}
	_ = g.store.Del(ctx, g.key(referenceCode, status))
}
