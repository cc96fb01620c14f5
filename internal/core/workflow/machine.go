// Package workflow runs the article approval state machine. Every mutation
// is authorized against the session current at the time of the call, sent
// to the remote authority, and on success invalidates the cache tags it
// affects before the result is returned.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/permission"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
	"github.com/ibtissamelhani/induspress/internal/metrics"
)

// SessionSource yields the active session at the time of the call.
type SessionSource interface {
	Current(ctx context.Context) (*domain.Session, bool)
	// Revoke ends the active session if it still carries token.
	Revoke(ctx context.Context, token string) error
}

// revokeOnRejection ends the session whose token the authority refused.
func revokeOnRejection(ctx context.Context, sessions SessionSource, token string, err error, log zerolog.Logger) {
	switch domain.KindOf(err) {
	case domain.KindInvalidToken, domain.KindExpired:
	default:
		return
	}
	if token == "" {
		return
	}
	if rerr := sessions.Revoke(ctx, token); rerr != nil {
		log.Error().Err(rerr).Msg("failed to revoke rejected session")
	}
}

// Invalidator fires cache tags.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...domain.Tag) error
}

// Command is one mutation request.
type Command struct {
	Kind   domain.MutationKind
	ID     string
	Draft  domain.Draft
	Reason string
	// ExpectedUpdated, when set, is the updated instant the caller last read.
	// An edit fails with Conflict if the article changed since.
	ExpectedUpdated time.Time
}

// Machine is the workflow state machine.
type Machine struct {
	sessions  SessionSource
	authority ports.Authority
	cache     Invalidator
	validate  *validator.Validate
	now       func() time.Time
	newKey    func() string
	log       zerolog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithKeyGenerator overrides how Idempotency-Keys for creates are made.
func WithKeyGenerator(fn func() string) Option {
	return func(m *Machine) { m.newKey = fn }
}

func NewMachine(sessions SessionSource, authority ports.Authority, cache Invalidator, log zerolog.Logger, opts ...Option) *Machine {
	m := &Machine{
		sessions:  sessions,
		authority: authority,
		cache:     cache,
		validate:  NewValidator(),
		now:       time.Now,
		newKey:    func() string { return uuid.NewString() },
		log:       log.With().Str("component", "workflow").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatch runs cmd and returns the article as it stands afterwards. Delete
// returns the article as it stood before removal.
func (m *Machine) Dispatch(ctx context.Context, cmd Command) (*domain.Article, error) {
	start := time.Now()
	var (
		a   *domain.Article
		err error
	)
	switch cmd.Kind {
	case domain.MutationCreate:
		a, err = m.Submit(ctx, cmd.Draft)
	case domain.MutationEdit:
		a, err = m.Edit(ctx, cmd.ID, cmd.Draft, cmd.ExpectedUpdated)
	case domain.MutationDelete:
		a, err = m.Delete(ctx, cmd.ID)
	case domain.MutationPublish:
		a, err = m.Publish(ctx, cmd.ID)
	case domain.MutationReject:
		a, err = m.Reject(ctx, cmd.ID, cmd.Reason)
	default:
		err = domain.NewError(domain.KindValidation, "dispatch", fmt.Sprintf("unknown mutation %d", cmd.Kind))
	}

	outcome := "ok"
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	metrics.DispatchTotal.WithLabelValues(cmd.Kind.String(), outcome).Inc()
	metrics.DispatchDuration.WithLabelValues(cmd.Kind.String()).Observe(time.Since(start).Seconds())
	return a, err
}

// Submit creates a new article in PENDING for the current author.
func (m *Machine) Submit(ctx context.Context, draft domain.Draft) (*domain.Article, error) {
	const op = "submit article"
	sess, err := m.authorize(ctx, op, domain.ActionCreateArticle, nil)
	if err != nil {
		return nil, err
	}

	next, err := Next(domain.MutationCreate, sess.Identity.Role, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	draft = m.coerceStatus(sess, draft, next)
	if err := ValidateDraft(m.validate, draft); err != nil {
		return nil, err
	}

	created, err := m.authority.CreateArticle(ctx, sess.Token, draft, m.newKey())
	if err != nil {
		return nil, m.remoteFailed(ctx, op, "", sess.Token, err)
	}
	if err := m.committed(ctx, domain.MutationCreate, created.ID); err != nil {
		return nil, err
	}
	return created, nil
}

// Edit replaces the content of an article. An author's edit always sends
// the article back to PENDING.
func (m *Machine) Edit(ctx context.Context, id string, draft domain.Draft, expectedUpdated time.Time) (*domain.Article, error) {
	const op = "edit article"
	current, err := m.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	sess, err := m.authorize(ctx, op, domain.ActionEditArticle, current)
	if err != nil {
		return nil, err
	}
	if !expectedUpdated.IsZero() && !current.UpdatedAt.Equal(expectedUpdated) {
		return nil, &domain.Error{Kind: domain.KindConflict, Op: op, Msg: "article changed since it was last read"}
	}
	next, err := Next(domain.MutationEdit, sess.Identity.Role, current.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	draft = m.coerceStatus(sess, draft, next)
	if err := ValidateDraft(m.validate, draft); err != nil {
		return nil, err
	}

	updated, err := m.authority.UpdateArticle(ctx, sess.Token, id, draft)
	if err != nil {
		return nil, m.remoteFailed(ctx, op, id, sess.Token, err)
	}
	if updated == nil {
		updated = current
		updated.Title, updated.Content = draft.Title, draft.Content
		updated.CategoryID, updated.CoverImage = draft.CategoryID, draft.CoverImage
		Apply(domain.MutationEdit, updated, next, "", m.now())
	}
	if err := m.committed(ctx, domain.MutationEdit, id); err != nil {
		return nil, err
	}
	return updated, nil
}

// Publish moves an article to PUBLISHED and clears any rejection reason.
func (m *Machine) Publish(ctx context.Context, id string) (*domain.Article, error) {
	return m.transition(ctx, domain.MutationPublish, id, "")
}

// Reject moves an article to REJECTED with reason. A blank reason fails
// with a validation error before anything else is checked.
func (m *Machine) Reject(ctx context.Context, id, reason string) (*domain.Article, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: "reject article", Msg: "rejection reason is required"}
	}
	return m.transition(ctx, domain.MutationReject, id, reason)
}

// Delete removes an article.
func (m *Machine) Delete(ctx context.Context, id string) (*domain.Article, error) {
	const op = "delete article"
	current, err := m.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	sess, err := m.authorize(ctx, op, domain.ActionDeleteArticle, current)
	if err != nil {
		return nil, err
	}
	if err := m.authority.DeleteArticle(ctx, sess.Token, id); err != nil {
		return nil, m.remoteFailed(ctx, op, id, sess.Token, err)
	}
	if err := m.committed(ctx, domain.MutationDelete, id); err != nil {
		return nil, err
	}
	return current, nil
}

func (m *Machine) transition(ctx context.Context, kind domain.MutationKind, id, reason string) (*domain.Article, error) {
	op := kind.String() + " article"
	current, err := m.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	sess, err := m.authorize(ctx, op, kind.Action(), current)
	if err != nil {
		return nil, err
	}
	next, err := Next(kind, sess.Identity.Role, current.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result *domain.Article
	switch kind {
	case domain.MutationPublish:
		result, err = m.authority.PublishArticle(ctx, sess.Token, id)
	case domain.MutationReject:
		result, err = m.authority.RejectArticle(ctx, sess.Token, id, reason)
	default:
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidTransition)
	}
	if err != nil {
		return nil, m.remoteFailed(ctx, op, id, sess.Token, err)
	}
	if result == nil {
		result = current
		Apply(kind, result, next, reason, m.now())
	}

	if err := m.committed(ctx, kind, id); err != nil {
		return nil, err
	}
	return result, nil
}

// load reads the article fresh from the authority for guard evaluation.
func (m *Machine) load(ctx context.Context, op, id string) (*domain.Article, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: op, Msg: "article id is required"}
	}
	token := m.token(ctx)
	a, err := m.authority.GetArticle(ctx, token, id)
	if err != nil {
		return nil, m.remoteFailed(ctx, op, id, token, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return a, nil
}

// authorize evaluates action against the session current right now.
func (m *Machine) authorize(ctx context.Context, op string, action domain.Action, res *domain.Article) (*domain.Session, error) {
	sess, ok := m.sessions.Current(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNoSession)
	}
	d := permission.Evaluate(sess, m.now(), action, res)
	if !d.Allowed {
		m.log.Info().
			Str("subject", sess.Identity.SubjectID).
			Str("action", action.String()).
			Str("reason", d.Reason).
			Msg("permission denied")
		return nil, &domain.Error{Kind: domain.KindPermissionDenied, Op: op, Msg: d.Reason}
	}
	return sess, nil
}

// coerceStatus forces the draft's status to the workflow's next status.
// Authors cannot choose a status; anything else they send is overridden.
func (m *Machine) coerceStatus(sess *domain.Session, draft domain.Draft, next domain.ArticleStatus) domain.Draft {
	if draft.Status != "" && draft.Status != next && sess.Identity.Role == domain.RoleAuthor {
		m.log.Warn().
			Str("subject", sess.Identity.SubjectID).
			Str("requested", draft.Status.String()).
			Str("forced", next.String()).
			Msg("author-supplied status overridden")
	}
	draft.Status = next
	return draft
}

// committed fires the tags of a successful mutation. It must run before the
// mutation's success is reported.
func (m *Machine) committed(ctx context.Context, kind domain.MutationKind, id string) error {
	tags := domain.InvalidatedBy(kind, id)
	if err := m.cache.Invalidate(ctx, tags...); err != nil {
		m.log.Error().Err(err).Str("mutation", kind.String()).Str("article_id", id).Msg("invalidation failed after committed mutation")
		return domain.RemoteError(kind.String()+" article", 0, err)
	}
	m.log.Info().Str("mutation", kind.String()).Str("article_id", id).Msg("mutation committed")
	return nil
}

func (m *Machine) remoteFailed(ctx context.Context, op, id, token string, err error) error {
	revokeOnRejection(ctx, m.sessions, token, err, m.log)
	m.log.Warn().Err(err).Str("op", op).Str("article_id", id).Str("kind", domain.KindOf(err).String()).Msg("remote call failed")
	if domain.KindOf(err) == domain.KindUnknown {
		return domain.RemoteError(op, 0, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (m *Machine) token(ctx context.Context) string {
	if sess, ok := m.sessions.Current(ctx); ok {
		return sess.Token
	}
	return ""
}
