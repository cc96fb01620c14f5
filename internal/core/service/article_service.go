package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/permission"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
	"github.com/ibtissamelhani/induspress/internal/core/workflow"
	"github.com/ibtissamelhani/induspress/internal/metrics"
)

// IdempotencyStore abstracts the create dedup store (Redis).
type IdempotencyStore interface {
	Reserve(ctx context.Context, subject, key string) (articleID string, reserved bool, err error)
	Complete(ctx context.Context, subject, key, articleID string) error
	Release(ctx context.Context, subject, key string) error
}

type articleService struct {
	articles   ports.ArticleRepository
	categories ports.CategoryRepository
	events     ports.EventRepository
	recorder   ports.EventRecorder
	idem       IdempotencyStore
	validate   *validator.Validate
	now        func() time.Time
	log        zerolog.Logger
}

// NewArticleService returns the authority side of the workflow. It re-checks
// every request with the same permission rules and transition table the
// client engine uses. idem may be nil, which disables create dedup.
func NewArticleService(
	articles ports.ArticleRepository,
	categories ports.CategoryRepository,
	events ports.EventRepository,
	recorder ports.EventRecorder,
	idem IdempotencyStore,
	log zerolog.Logger,
) ports.ArticleService {
	return &articleService{
		articles:   articles,
		categories: categories,
		events:     events,
		recorder:   recorder,
		idem:       idem,
		validate:   workflow.NewValidator(),
		now:        time.Now,
		log:        log,
	}
}

func (s *articleService) Create(ctx context.Context, actor *domain.Session, draft domain.Draft, idemKey string) (*domain.Article, error) {
	if err := s.authorize("create article", actor, domain.ActionCreateArticle, nil); err != nil {
		return nil, err
	}
	next, err := workflow.Next(domain.MutationCreate, actor.Identity.Role, "")
	if err != nil {
		return nil, err
	}
	draft.Status = next
	cat, err := s.checkDraft(ctx, draft)
	if err != nil {
		return nil, err
	}

	subject := actor.Identity.SubjectID
	if idemKey != "" && s.idem != nil {
		existing, reserved, err := s.idem.Reserve(ctx, subject, idemKey)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("subject", subject).Msg("idempotency check failed, creating anyway")
		case !reserved && existing != "":
			metrics.IdempotentReplaysTotal.Inc()
			return s.articles.FindByID(ctx, existing)
		case !reserved:
			return nil, domain.NewError(domain.KindConflict, "create article", "a request with this Idempotency-Key is in progress")
		}
	}

	now := s.now().UTC()
	a := &domain.Article{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(draft.Title),
		Content:         draft.Content,
		CategoryID:      draft.CategoryID,
		CategoryName:    cat.Name,
		CoverImage:      draft.CoverImage,
		AuthorID:        subject,
		AuthorFirstName: actor.Identity.FirstName,
		AuthorLastName:  actor.Identity.LastName,
		Status:          next,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.articles.Create(ctx, a); err != nil {
		if idemKey != "" && s.idem != nil {
			_ = s.idem.Release(ctx, subject, idemKey)
		}
		return nil, fmt.Errorf("create article: %w", err)
	}
	if idemKey != "" && s.idem != nil {
		if err := s.idem.Complete(ctx, subject, idemKey, a.ID); err != nil {
			s.log.Warn().Err(err).Str("article_id", a.ID).Msg("failed to record idempotency key")
		}
	}

	s.committed(ctx, domain.MutationCreate, a, actor, "")
	return a, nil
}

func (s *articleService) Get(ctx context.Context, actor *domain.Session, id string) (*domain.Article, error) {
	a, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusPublished {
		if err := s.authorize("get article", actor, domain.ActionViewUnpublished, a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (s *articleService) Update(ctx context.Context, actor *domain.Session, id string, draft domain.Draft) (*domain.Article, error) {
	const op = "update article"
	a, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(op, actor, domain.ActionEditArticle, a); err != nil {
		return nil, err
	}
	next, err := workflow.Next(domain.MutationEdit, actor.Identity.Role, a.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if draft.Status != "" && draft.Status != next {
		s.log.Warn().Str("article_id", id).Str("requested", draft.Status.String()).Str("forced", next.String()).Msg("requested status ignored")
	}
	draft.Status = next
	cat, err := s.checkDraft(ctx, draft)
	if err != nil {
		return nil, err
	}

	a.Title = strings.TrimSpace(draft.Title)
	a.Content = draft.Content
	a.CategoryID = draft.CategoryID
	a.CategoryName = cat.Name
	a.CoverImage = draft.CoverImage
	workflow.Apply(domain.MutationEdit, a, next, "", s.now().UTC())

	if err := s.articles.Replace(ctx, a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.committed(ctx, domain.MutationEdit, a, actor, "")
	return a, nil
}

func (s *articleService) Delete(ctx context.Context, actor *domain.Session, id string) error {
	a, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize("delete article", actor, domain.ActionDeleteArticle, a); err != nil {
		return err
	}
	if err := s.articles.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	s.committed(ctx, domain.MutationDelete, a, actor, "")
	return nil
}

func (s *articleService) Publish(ctx context.Context, actor *domain.Session, id string) (*domain.Article, error) {
	return s.transition(ctx, domain.MutationPublish, actor, id, "")
}

func (s *articleService) Reject(ctx context.Context, actor *domain.Session, id, reason string) (*domain.Article, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewError(domain.KindValidation, "reject article", "rejection reason is required")
	}
	return s.transition(ctx, domain.MutationReject, actor, id, reason)
}

func (s *articleService) transition(ctx context.Context, kind domain.MutationKind, actor *domain.Session, id, reason string) (*domain.Article, error) {
	op := kind.String() + " article"
	a, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(op, actor, kind.Action(), a); err != nil {
		return nil, err
	}
	next, err := workflow.Next(kind, actor.Identity.Role, a.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	workflow.Apply(kind, a, next, reason, s.now().UTC())
	if err := a.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.articles.Replace(ctx, a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.committed(ctx, kind, a, actor, reason)
	return a, nil
}

func (s *articleService) ListPublished(ctx context.Context, req ports.PageRequest) (*domain.Page, error) {
	return s.list(ctx, ports.ListArticlesFilter{Status: domain.StatusPublished}, req)
}

func (s *articleService) ListAll(ctx context.Context, actor *domain.Session, req ports.PageRequest) (*domain.Page, error) {
	if err := s.authorize("list all articles", actor, domain.ActionViewUnpublished, nil); err != nil {
		return nil, err
	}
	return s.list(ctx, ports.ListArticlesFilter{}, req)
}

func (s *articleService) ListMine(ctx context.Context, actor *domain.Session, req ports.PageRequest) (*domain.Page, error) {
	if !actor.Active(s.now()) {
		return nil, fmt.Errorf("list my articles: %w", domain.ErrNoSession)
	}
	return s.list(ctx, ports.ListArticlesFilter{AuthorID: actor.Identity.SubjectID}, req)
}

func (s *articleService) Stats(ctx context.Context, actor *domain.Session) (*domain.Stats, error) {
	if err := s.authorize("article stats", actor, domain.ActionViewUnpublished, nil); err != nil {
		return nil, err
	}
	counts, err := s.articles.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("article stats: %w", err)
	}
	st := &domain.Stats{
		Pending:   counts[domain.StatusPending],
		Published: counts[domain.StatusPublished],
		Rejected:  counts[domain.StatusRejected],
	}
	st.Total = st.Pending + st.Published + st.Rejected
	return st, nil
}

func (s *articleService) History(ctx context.Context, actor *domain.Session, id string) ([]domain.ArticleEvent, error) {
	a, err := s.articles.FindByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if a == nil {
		// Deleted articles keep their trail; only editors may read it.
		if err := s.authorize("article history", actor, domain.ActionViewUnpublished, nil); err != nil {
			return nil, err
		}
	} else if err := s.authorize("article history", actor, domain.ActionViewUnpublished, a); err != nil {
		return nil, err
	}
	return s.events.ListEvents(ctx, id)
}

func (s *articleService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *articleService) list(ctx context.Context, filter ports.ListArticlesFilter, req ports.PageRequest) (*domain.Page, error) {
	if req.Page < 0 {
		req.Page = 0
	}
	if req.Size <= 0 {
		req.Size = workflow.DefaultPageSize
	}
	filter.Page, filter.Size = req.Page, req.Size

	items, total, err := s.articles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if items == nil {
		items = []domain.Article{}
	}
	return &domain.Page{
		Content:       items,
		Number:        req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    int((total + int64(req.Size) - 1) / int64(req.Size)),
	}, nil
}

func (s *articleService) authorize(op string, actor *domain.Session, action domain.Action, a *domain.Article) error {
	if actor == nil {
		return fmt.Errorf("%s: %w", op, domain.ErrNoSession)
	}
	if d := permission.Evaluate(actor, s.now(), action, a); !d.Allowed {
		return domain.NewError(domain.KindPermissionDenied, op, d.Reason)
	}
	return nil
}

// checkDraft validates draft content and resolves its category.
func (s *articleService) checkDraft(ctx context.Context, draft domain.Draft) (*domain.Category, error) {
	if err := workflow.ValidateDraft(s.validate, draft); err != nil {
		return nil, err
	}
	cat, err := s.categories.FindByID(ctx, draft.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("validate draft: %w", err)
	}
	return cat, nil
}

// committed counts the transition and hands it to the audit recorder.
// Recording failures never undo a committed transition.
func (s *articleService) committed(ctx context.Context, kind domain.MutationKind, a *domain.Article, actor *domain.Session, reason string) {
	metrics.TransitionsTotal.WithLabelValues(kind.String()).Inc()

	ev := domain.ArticleEvent{
		ArticleID: a.ID,
		Mutation:  kind.String(),
		ActorID:   actor.Identity.SubjectID,
		Reason:    reason,
		Timestamp: s.now().UTC(),
	}
	if kind != domain.MutationDelete {
		ev.Status = a.Status
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, ev); err != nil {
			s.log.Warn().Err(err).Str("article_id", a.ID).Msg("failed to record event")
		}
	}

	s.log.Info().
		Str("article_id", a.ID).
		Str("mutation", kind.String()).
		Str("status", a.Status.String()).
		Str("actor", actor.Identity.SubjectID).
		Msg("transition committed")
}
