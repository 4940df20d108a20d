package paymentwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/henriqueponts/labstore-sub002/pkg/redis"
)

// IdempotencyGuard remembers settled gateway event ids so exact redeliveries
// are acknowledged without reaching the database. Nothing is recorded before
// an event succeeds, so a failed or abandoned attempt never hides a retry.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// Seen reports whether eventID was already settled.
func (g *IdempotencyGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	value, err := g.store.Get(ctx, g.store.IdempotencyKey(g.scope, eventID))
	if err != nil && !errors.Is(err, goredis.Nil) {
		return false, fmt.Errorf("read webhook guard: %w", err)
	}
	return value != "", nil
}

// Mark records eventID as settled. Call it only after the event was handled;
// the database link-id constraints cover deliveries that race before Mark.
// The write outlives ctx so a dropped connection does not skip it.
func (g *IdempotencyGuard) Mark(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	if _, err := g.store.SetNX(context.WithoutCancel(ctx), g.store.IdempotencyKey(g.scope, eventID), "1", g.ttl); err != nil {
		return fmt.Errorf("set webhook guard: %w", err)
	}
	return nil
}
