package ports

import (
	"context"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// EventRecorder processes workflow events after a transition committed.
type EventRecorder interface {
	Record(ctx context.Context, event domain.ArticleEvent) error
}
