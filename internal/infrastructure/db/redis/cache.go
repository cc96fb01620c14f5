package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

// CacheBackend stores cache entries as JSON strings and tag versions as
// integer counters, so several engine processes can share one cache.
//
//	<ns>:entry:<key>  → JSON ports.CacheEntry, expires after ttl
//	<ns>:tag:<tag>    → INCR counter
type CacheBackend struct {
	client *redis.Client
	ns     string
	ttl    time.Duration
}

// NewCacheBackend wraps client. Entries expire after ttl; zero keeps them
// until evicted by Redis.
func NewCacheBackend(client *redis.Client, namespace string, ttl time.Duration) *CacheBackend {
	return &CacheBackend{client: client, ns: namespace, ttl: ttl}
}

func (b *CacheBackend) entryKey(k string) string { return key(b.ns, "entry", k) }

func (b *CacheBackend) tagKey(t domain.Tag) string { return key(b.ns, "tag", t.String()) }

func (b *CacheBackend) Get(ctx context.Context, k string) (*ports.CacheEntry, bool, error) {
	raw, err := b.client.Get(ctx, b.entryKey(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get: %w", err)
	}
	var entry ports.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("redis cache decode: %w", err)
	}
	return &entry, true, nil
}

func (b *CacheBackend) Put(ctx context.Context, k string, entry ports.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis cache encode: %w", err)
	}
	if err := b.client.Set(ctx, b.entryKey(k), raw, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache put: %w", err)
	}
	return nil
}

func (b *CacheBackend) Versions(ctx context.Context, tags []domain.Tag) (map[string]uint64, error) {
	out := make(map[string]uint64, len(tags))
	if len(tags) == 0 {
		return out, nil
	}
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = b.tagKey(t)
	}
	vals, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis cache versions: %w", err)
	}
	for i, t := range tags {
		out[t.String()] = parseVersion(vals[i])
	}
	return out, nil
}

func (b *CacheBackend) Bump(ctx context.Context, tags []domain.Tag) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, t := range tags {
			pipe.Incr(ctx, b.tagKey(t))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis cache bump: %w", err)
	}
	return nil
}

// parseVersion reads an MGET value; a missing counter is version 0.
func parseVersion(v interface{}) uint64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var _ ports.CacheBackend = (*CacheBackend)(nil)
