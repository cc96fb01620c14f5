package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
	"github.com/ibtissamelhani/induspress/internal/metrics"
)

type eventService struct {
	eventRepo ports.EventRepository
	log       zerolog.Logger
}

// NewEventService returns an EventRecorder that persists the audit trail.
func NewEventService(eventRepo ports.EventRepository, log zerolog.Logger) ports.EventRecorder {
	return &eventService{
		eventRepo: eventRepo,
		log:       log,
	}
}

// Record persists one committed transition.
func (s *eventService) Record(ctx context.Context, event domain.ArticleEvent) error {
	if event.ArticleID == "" || event.Mutation == "" {
		return fmt.Errorf("record event: %w: article id and mutation are required", domain.ErrValidation)
	}
	if err := s.eventRepo.InsertEvent(ctx, &event); err != nil {
		metrics.EventsErrorsTotal.Inc()
		return fmt.Errorf("record event: %w", err)
	}

	s.log.Debug().
		Str("article_id", event.ArticleID).
		Str("mutation", event.Mutation).
		Str("actor", event.ActorID).
		Msg("event recorded")

	return nil
}
