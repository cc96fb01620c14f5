package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubEventRepo struct {
	insertErr error
	inserted  []*domain.ArticleEvent
}

func (r *stubEventRepo) InsertEvent(_ context.Context, e *domain.ArticleEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, e)
	return nil
}

func (r *stubEventRepo) ListEvents(_ context.Context, articleID string) ([]domain.ArticleEvent, error) {
	var out []domain.ArticleEvent
	for _, e := range r.inserted {
		if e.ArticleID == articleID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEventService_Record_Persists(t *testing.T) {
	repo := &stubEventRepo{}
	svc := NewEventService(repo, zerolog.Nop())

	ev := domain.ArticleEvent{ArticleID: "a1", Mutation: "publish", Status: domain.StatusPublished, ActorID: "ed", Timestamp: time.Now()}
	if err := svc.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].ArticleID != "a1" {
		t.Fatalf("event not inserted: %+v", repo.inserted)
	}
}

func TestEventService_Record_RequiresArticleAndMutation(t *testing.T) {
	repo := &stubEventRepo{}
	svc := NewEventService(repo, zerolog.Nop())

	if err := svc.Record(context.Background(), domain.ArticleEvent{Mutation: "edit"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("invalid event inserted")
	}
}

func TestEventService_Record_RepoError(t *testing.T) {
	repoErr := errors.New("mongo down")
	svc := NewEventService(&stubEventRepo{insertErr: repoErr}, zerolog.Nop())

	err := svc.Record(context.Background(), domain.ArticleEvent{ArticleID: "a1", Mutation: "edit"})
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}
