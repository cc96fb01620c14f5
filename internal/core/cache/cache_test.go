package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/infrastructure/cachemem"
)

type counter struct {
	calls int
	value string
}

func (c *counter) fetch(_ context.Context) (string, error) {
	c.calls++
	return c.value, nil
}

func newCache(opts ...Option) *Cache {
	return New(cachemem.New(), zerolog.Nop(), opts...)
}

var (
	entityKey  = Key{Scope: "u1", Kind: "article", Params: "42"}
	listingKey = Key{Scope: "u1", Kind: "published", Params: "0:10"}
	entityTags = []domain.Tag{domain.ArticleIDTag("42")}
	listTags   = []domain.Tag{domain.ArticleTag()}
)

func TestRead_ServesValidEntry(t *testing.T) {
	c := newCache()
	src := &counter{value: "v1"}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := Read(ctx, c, entityKey, entityTags, src.fetch)
		if err != nil {
			t.Fatalf("Read returned error: %v", err)
		}
		if got != "v1" {
			t.Fatalf("unexpected value %q", got)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", src.calls)
	}
}

func TestInvalidate_ForcesRefetchForTaggedEntriesOnly(t *testing.T) {
	c := newCache()
	ctx := context.Background()
	entity := &counter{value: "before"}
	listing := &counter{value: "list"}

	_, _ = Read(ctx, c, entityKey, entityTags, entity.fetch)
	_, _ = Read(ctx, c, listingKey, listTags, listing.fetch)

	entity.value = "after"
	if err := c.Invalidate(ctx, domain.ArticleIDTag("42")); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}

	got, _ := Read(ctx, c, entityKey, entityTags, entity.fetch)
	if got != "after" || entity.calls != 2 {
		t.Fatalf("expected refetch after invalidation, got %q after %d calls", got, entity.calls)
	}
	_, _ = Read(ctx, c, listingKey, listTags, listing.fetch)
	if listing.calls != 1 {
		t.Fatalf("untagged listing must stay cached, got %d calls", listing.calls)
	}
}

func TestInvalidate_DuringFetchLeavesEntryStale(t *testing.T) {
	c := newCache()
	ctx := context.Background()
	calls := 0

	fetch := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			// A mutation completes while this read is in flight.
			if err := c.Invalidate(ctx, domain.ArticleTag()); err != nil {
				t.Fatalf("Invalidate returned error: %v", err)
			}
			return "pre-mutation", nil
		}
		return "post-mutation", nil
	}

	first, _ := Read(ctx, c, listingKey, listTags, fetch)
	if first != "pre-mutation" {
		t.Fatalf("unexpected first value %q", first)
	}
	second, _ := Read(ctx, c, listingKey, listTags, fetch)
	if second != "post-mutation" {
		t.Fatalf("entry captured before invalidation was served: %q", second)
	}
}

func TestRead_FetchErrorIsNotCached(t *testing.T) {
	c := newCache()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Read(ctx, c, entityKey, entityTags, func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	src := &counter{value: "ok"}
	got, _ := Read(ctx, c, entityKey, entityTags, src.fetch)
	if got != "ok" || src.calls != 1 {
		t.Fatalf("expected fresh fetch after error, got %q", got)
	}
}

func TestRead_MaxAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newCache(WithMaxAge(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	src := &counter{value: "v"}

	_, _ = Read(ctx, c, entityKey, entityTags, src.fetch)
	now = now.Add(30 * time.Second)
	_, _ = Read(ctx, c, entityKey, entityTags, src.fetch)
	if src.calls != 1 {
		t.Fatalf("expected cached read inside max age, got %d calls", src.calls)
	}
	now = now.Add(time.Minute)
	_, _ = Read(ctx, c, entityKey, entityTags, src.fetch)
	if src.calls != 2 {
		t.Fatalf("expected refetch past max age, got %d calls", src.calls)
	}
}

func TestKey_String(t *testing.T) {
	if got := (Key{Kind: "published", Params: "0:10"}).String(); got != "q:anonymous:published:0:10" {
		t.Fatalf("unexpected key %q", got)
	}
}
