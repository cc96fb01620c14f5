package ports

import (
	"context"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// ListArticlesFilter carries the query parameters of a listing.
// Empty fields do not filter.
type ListArticlesFilter struct {
	Status   domain.ArticleStatus
	AuthorID string
	Page     int // zero-based
	Size     int
}

// ArticleRepository defines persistence operations for articles.
type ArticleRepository interface {
	Create(ctx context.Context, a *domain.Article) error
	FindByID(ctx context.Context, id string) (*domain.Article, error)
	// Replace overwrites the stored article. It fails with domain.ErrNotFound
	// when the article no longer exists.
	Replace(ctx context.Context, a *domain.Article) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListArticlesFilter) ([]domain.Article, int64, error)
	CountByStatus(ctx context.Context) (map[domain.ArticleStatus]int64, error)
}

// CategoryRepository lists the reference taxonomy.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	FindByID(ctx context.Context, id string) (*domain.Category, error)
}
