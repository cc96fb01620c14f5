package ports

import (
	"context"
	"time"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// CacheEntry is a captured remote response and the tag versions observed
// before it was fetched.
type CacheEntry struct {
	Value     []byte            `json:"value"`
	Versions  map[string]uint64 `json:"versions"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// CacheBackend stores entries and monotonically increasing tag versions.
// Bumping a tag's version marks every entry captured under the old version stale.
type CacheBackend interface {
	Get(ctx context.Context, key string) (*CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry CacheEntry) error
	Versions(ctx context.Context, tags []domain.Tag) (map[string]uint64, error)
	Bump(ctx context.Context, tags []domain.Tag) error
}
