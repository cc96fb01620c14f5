package ports

import (
	"context"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// EventRepository stores the audit trail of workflow transitions.
type EventRepository interface {
	InsertEvent(ctx context.Context, event *domain.ArticleEvent) error
	ListEvents(ctx context.Context, articleID string) ([]domain.ArticleEvent, error)
}
