package cachemem

import (
	"context"
	"sync"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

// Backend is an in-process CacheBackend. Entries and tag versions share
// one lock.
type Backend struct {
	mu       sync.Mutex
	entries  map[string]ports.CacheEntry
	versions map[string]uint64
}

func New() *Backend {
	return &Backend{
		entries:  make(map[string]ports.CacheEntry),
		versions: make(map[string]uint64),
	}
}

func (b *Backend) Get(_ context.Context, key string) (*ports.CacheEntry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (b *Backend) Put(_ context.Context, key string, entry ports.CacheEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = entry
	return nil
}

func (b *Backend) Versions(_ context.Context, tags []domain.Tag) (map[string]uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]uint64, len(tags))
	for _, t := range tags {
		out[t.String()] = b.versions[t.String()]
	}
	return out, nil
}

func (b *Backend) Bump(_ context.Context, tags []domain.Tag) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range tags {
		b.versions[t.String()]++
	}
	return nil
}

// Len returns the number of stored entries, stale or not.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

var _ ports.CacheBackend = (*Backend)(nil)
