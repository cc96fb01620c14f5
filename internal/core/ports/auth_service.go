package ports

import (
	"context"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Me(ctx context.Context, id string) (*domain.User, error)
}
