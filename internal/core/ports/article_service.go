package ports

import (
	"context"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// ArticleService is the reference authority's article use cases. Every
// operation is evaluated for the given actor session.
type ArticleService interface {
	Create(ctx context.Context, actor *domain.Session, draft domain.Draft, idempotencyKey string) (*domain.Article, error)
	Get(ctx context.Context, actor *domain.Session, id string) (*domain.Article, error)
	Update(ctx context.Context, actor *domain.Session, id string, draft domain.Draft) (*domain.Article, error)
	Delete(ctx context.Context, actor *domain.Session, id string) error
	Publish(ctx context.Context, actor *domain.Session, id string) (*domain.Article, error)
	Reject(ctx context.Context, actor *domain.Session, id, reason string) (*domain.Article, error)

	ListPublished(ctx context.Context, req PageRequest) (*domain.Page, error)
	ListAll(ctx context.Context, actor *domain.Session, req PageRequest) (*domain.Page, error)
	ListMine(ctx context.Context, actor *domain.Session, req PageRequest) (*domain.Page, error)
	Stats(ctx context.Context, actor *domain.Session) (*domain.Stats, error)
	History(ctx context.Context, actor *domain.Session, id string) ([]domain.ArticleEvent, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}
