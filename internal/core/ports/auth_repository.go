package ports

import (
	"context"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// UserRepository persists accounts held by the reference authority.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
