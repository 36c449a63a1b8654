// Package idempotency keeps Pub/Sub consumers from handling a redelivered
// event twice.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/pkg/redis"
)

const (
	defaultLeaseTTL = 5 * time.Minute

	statePending = "pending"
	stateDone    = "done"
)

// Guard claims an event for one consumer in two steps. Claim takes a short
// lease so a crashed handler does not block redelivery for long; Complete
// replaces the lease with a marker that lives for the done TTL.
type Guard struct {
	store    redis.IdempotencyStore
	leaseTTL time.Duration
	doneTTL  time.Duration
}

// NewGuard builds a guard whose completed markers expire after doneTTL
// (zero keeps them forever).
func NewGuard(store redis.IdempotencyStore, doneTTL time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if doneTTL < 0 {
		return nil, errors.New("done ttl must be non-negative")
	}
	lease := defaultLeaseTTL
	if doneTTL > 0 && doneTTL < lease {
		lease = doneTTL
	}
	return &Guard{store: store, leaseTTL: lease, doneTTL: doneTTL}, nil
}

// Claim reports whether the caller now owns eventID for consumer. False means
// another delivery is being handled or already finished.
func (g *Guard) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, statePending, g.leaseTTL)
}

// Complete marks a claimed event as handled.
func (g *Guard) Complete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, key, stateDone, g.doneTTL)
}

// Release drops a claim so the next delivery can retry.
func (g *Guard) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
