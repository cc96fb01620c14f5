// Package engine is the surface UI and CLI collaborators call into. It owns
// the session store, the cache and the workflow, and keeps them consistent:
// when a session ends every cache entry read under it goes stale.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/cache"
	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/permission"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
	"github.com/ibtissamelhani/induspress/internal/core/session"
	"github.com/ibtissamelhani/induspress/internal/core/workflow"
)

type (
	Command   = workflow.Command
	QueryKind = workflow.QueryKind
	Params    = workflow.Params
	Result    = workflow.Result
	Pager     = workflow.Pager
)

type Engine struct {
	sessions  *session.Store
	authority ports.Authority
	cache     *cache.Cache
	machine   *workflow.Machine
	querier   *workflow.Querier
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*config)

type config struct {
	now    func() time.Time
	newKey func() string
}

func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithKeyGenerator overrides the Idempotency-Key source for creates.
func WithKeyGenerator(fn func() string) Option {
	return func(c *config) { c.newKey = fn }
}

func New(sessions *session.Store, authority ports.Authority, c *cache.Cache, log zerolog.Logger, opts ...Option) *Engine {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	mopts := []workflow.Option{workflow.WithClock(cfg.now)}
	if cfg.newKey != nil {
		mopts = append(mopts, workflow.WithKeyGenerator(cfg.newKey))
	}

	e := &Engine{
		sessions:  sessions,
		authority: authority,
		cache:     c,
		machine:   workflow.NewMachine(sessions, authority, c, log, mopts...),
		querier:   workflow.NewQuerier(sessions, authority, c, log, workflow.WithQueryClock(cfg.now)),
		now:       cfg.now,
		log:       log.With().Str("component", "engine").Logger(),
	}
	sessions.OnEnd(e.sessionEnded)
	return e
}

// sessionEnded fires the ended subject's tag so that nothing read under its
// authorization, including reads still in flight, is served again.
func (e *Engine) sessionEnded(id domain.Identity) {
	if err := e.cache.Invalidate(context.Background(), domain.SessionTag(id.SubjectID)); err != nil {
		e.log.Error().Err(err).Str("subject", id.SubjectID).Msg("failed to invalidate session scope")
	}
}

// Restore reinstates a persisted session at process start.
func (e *Engine) Restore(ctx context.Context) error {
	return e.sessions.Restore(ctx)
}

// Login authenticates against the remote authority and establishes the
// returned token as the active session.
func (e *Engine) Login(ctx context.Context, creds domain.Credentials) (domain.Identity, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return domain.Identity{}, &domain.Error{Kind: domain.KindValidation, Op: "login", Msg: "email and password are required"}
	}
	token, err := e.authority.Authenticate(ctx, creds)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	if err := e.sessions.Establish(ctx, token); err != nil {
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	id, ok := e.sessions.Identity(ctx)
	if !ok {
		return domain.Identity{}, fmt.Errorf("login: %w", domain.ErrNoSession)
	}
	return id, nil
}

// Register creates an account. It does not log in.
func (e *Engine) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	if !reg.Role.Valid() {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: "register", Msg: "role must be AUTHOR or EDITOR"}
	}
	u, err := e.authority.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return u, nil
}

// Logout ends the active session. Calling it without a session is a no-op.
func (e *Engine) Logout(ctx context.Context) error {
	return e.sessions.Clear(ctx)
}

// Me asks the remote authority who the active token belongs to.
func (e *Engine) Me(ctx context.Context) (*domain.User, error) {
	sess, ok := e.sessions.Current(ctx)
	if !ok {
		return nil, fmt.Errorf("me: %w", domain.ErrNoSession)
	}
	u, err := e.authority.Me(ctx, sess.Token)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindInvalidToken, domain.KindExpired:
			if rerr := e.sessions.Revoke(ctx, sess.Token); rerr != nil {
				e.log.Error().Err(rerr).Msg("failed to revoke rejected session")
			}
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	return u, nil
}

// CurrentIdentity returns the identity of the active session.
func (e *Engine) CurrentIdentity(ctx context.Context) (domain.Identity, bool) {
	return e.sessions.Identity(ctx)
}

// Can reports whether the active session may perform action on resource.
// It never calls the remote authority.
func (e *Engine) Can(ctx context.Context, action domain.Action, resource *domain.Article) bool {
	sess, _ := e.sessions.Current(ctx)
	return permission.CanPerform(sess, e.now(), action, resource)
}

// Dispatch runs a workflow mutation. On success the cache has already been
// invalidated for everything the mutation affects.
func (e *Engine) Dispatch(ctx context.Context, cmd Command) (*domain.Article, error) {
	return e.machine.Dispatch(ctx, cmd)
}

// Query reads through the cache.
func (e *Engine) Query(ctx context.Context, kind QueryKind, params Params) (*Result, error) {
	return e.querier.Query(ctx, kind, params)
}

// Pages returns a restartable pager over a listing.
func (e *Engine) Pages(kind QueryKind, size int) *Pager {
	return e.querier.Pages(kind, size)
}
