package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupTTL     = 24 * time.Hour
	pendingValue = "pending"
)

// IdempotencyStore remembers which article an Idempotency-Key created.
// Key format: <ns>:idem:<subject>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ns     string
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis client.
func NewIdempotencyStore(client *redis.Client, namespace string) *IdempotencyStore {
	return &IdempotencyStore{client: client, ns: namespace}
}

// Reserve claims key for subject. When the key was already used it returns
// the article id recorded for it; an empty id with reserved=false means the
// first request is still in flight.
func (d *IdempotencyStore) Reserve(ctx context.Context, subject, idemKey string) (articleID string, reserved bool, err error) {
	k := d.key(subject, idemKey)
	ok, err := d.client.SetNX(ctx, k, pendingValue, dedupTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return "", true, nil
	}
	v, err := d.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET.
		return d.Reserve(ctx, subject, idemKey)
	}
	if err != nil {
		return "", false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if v == pendingValue {
		return "", false, nil
	}
	return v, false, nil
}

// Complete records the article created under a reserved key.
func (d *IdempotencyStore) Complete(ctx context.Context, subject, idemKey, articleID string) error {
	return d.client.Set(ctx, d.key(subject, idemKey), articleID, dedupTTL).Err()
}

// Release frees a reserved key after a failed create so it can be retried.
func (d *IdempotencyStore) Release(ctx context.Context, subject, idemKey string) error {
	return d.client.Del(ctx, d.key(subject, idemKey)).Err()
}

func (d *IdempotencyStore) key(subject, idemKey string) string {
	return key(d.ns, "idem", subject, idemKey)
}
