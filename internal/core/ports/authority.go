package ports

import (
	"context"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// PageRequest selects a zero-based page of a listing.
type PageRequest struct {
	Page int
	Size int
}

// Authority is the remote source of truth for articles and accounts.
// Every call is made on behalf of the bearer token it receives; an empty
// token is an anonymous call.
type Authority interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (string, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.User, error)
	Me(ctx context.Context, token string) (*domain.User, error)

	ListPublished(ctx context.Context, token string, req PageRequest) (*domain.Page, error)
	ListAll(ctx context.Context, token string, req PageRequest) (*domain.Page, error)
	ListMine(ctx context.Context, token string, req PageRequest) (*domain.Page, error)
	GetArticle(ctx context.Context, token, id string) (*domain.Article, error)
	Stats(ctx context.Context, token string) (*domain.Stats, error)
	Categories(ctx context.Context, token string) ([]domain.Category, error)

	CreateArticle(ctx context.Context, token string, draft domain.Draft, idempotencyKey string) (*domain.Article, error)
	UpdateArticle(ctx context.Context, token, id string, draft domain.Draft) (*domain.Article, error)
	DeleteArticle(ctx context.Context, token, id string) error
	PublishArticle(ctx context.Context, token, id string) (*domain.Article, error)
	RejectArticle(ctx context.Context, token, id, reason string) (*domain.Article, error)
}
