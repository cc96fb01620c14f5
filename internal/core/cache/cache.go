// Package cache keeps the last-known remote responses and invalidates them
// by tag. Staleness is decided lazily on read: an entry is valid only while
// every tag it was captured under still has the version observed before the
// entry's fetch started.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
	"github.com/ibtissamelhani/induspress/internal/metrics"
)

// Key identifies one cached read: a query kind with its parameters, scoped
// to the subject it was read for.
type Key struct {
	Scope  string
	Kind   string
	Params string
}

func (k Key) String() string {
	scope := k.Scope
	if scope == "" {
		scope = "anonymous"
	}
	return strings.Join([]string{"q", scope, k.Kind, k.Params}, ":")
}

// Cache is the consistency layer in front of the remote authority.
type Cache struct {
	backend ports.CacheBackend
	maxAge  time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxAge bounds how long a valid entry is served. Zero means entries
// only go stale by invalidation.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(backend ports.CacheBackend, log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		now:     time.Now,
		log:     log.With().Str("component", "cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetcher loads the current value from the remote authority.
type Fetcher func(ctx context.Context) ([]byte, error)

// Read returns the value under key, fetching first when no valid entry
// exists. fresh reports whether a fetch happened.
func (c *Cache) Read(ctx context.Context, key Key, tags []domain.Tag, fetch Fetcher) (value []byte, fresh bool, err error) {
	k := key.String()

	current, verr := c.backend.Versions(ctx, tags)
	if verr != nil {
		c.log.Warn().Err(verr).Str("key", k).Msg("tag versions unavailable, bypassing cache")
		metrics.CacheReadsTotal.WithLabelValues("miss").Inc()
		value, err = fetch(ctx)
		return value, true, err
	}

	entry, ok, gerr := c.backend.Get(ctx, k)
	if gerr != nil {
		c.log.Warn().Err(gerr).Str("key", k).Msg("cache get failed")
	}
	if gerr == nil && ok && c.valid(entry, tags, current) {
		metrics.CacheReadsTotal.WithLabelValues("hit").Inc()
		return entry.Value, false, nil
	}

	metrics.CacheReadsTotal.WithLabelValues("miss").Inc()
	value, err = fetch(ctx)
	if err != nil {
		return nil, true, err
	}

	// current was read before the fetch started; an invalidation that lands
	// while the fetch is in flight leaves this entry already stale.
	if perr := c.backend.Put(ctx, k, ports.CacheEntry{Value: value, Versions: current, FetchedAt: c.now()}); perr != nil {
		c.log.Warn().Err(perr).Str("key", k).Msg("cache put failed")
	}
	return value, true, nil
}

// Invalidate marks every entry carrying any of tags as stale.
func (c *Cache) Invalidate(ctx context.Context, tags ...domain.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	if err := c.backend.Bump(ctx, tags); err != nil {
		return fmt.Errorf("invalidate %v: %w", tags, err)
	}
	for _, t := range tags {
		metrics.CacheInvalidationsTotal.WithLabelValues(string(t.Kind)).Inc()
	}
	c.log.Debug().Strs("tags", tagStrings(tags)).Msg("tags invalidated")
	return nil
}

func (c *Cache) valid(entry *ports.CacheEntry, tags []domain.Tag, current map[string]uint64) bool {
	if c.maxAge > 0 && !c.now().Before(entry.FetchedAt.Add(c.maxAge)) {
		return false
	}
	for _, t := range tags {
		captured, ok := entry.Versions[t.String()]
		if !ok || captured != current[t.String()] {
			return false
		}
	}
	return true
}

// Read is the typed form of Cache.Read: values round-trip through JSON.
func Read[T any](ctx context.Context, c *Cache, key Key, tags []domain.Tag, fetch func(ctx context.Context) (T, error)) (T, error) {
	var out T
	raw, _, err := c.Read(ctx, key, tags, func(ctx context.Context) ([]byte, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode cached %s: %w", key.Kind, err)
	}
	return out, nil
}

func tagStrings(tags []domain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}
