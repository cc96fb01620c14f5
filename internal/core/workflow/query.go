package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/cache"
	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/permission"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

// DefaultPageSize is used when a listing is requested without a size.
const DefaultPageSize = 10

// ErrNoMorePages is returned by Pager.Next once the last page was served.
var ErrNoMorePages = errors.New("no more pages")

// QueryKind is a cached read.
type QueryKind int

const (
	QueryPublished QueryKind = iota + 1
	QueryAll
	QueryMine
	QueryArticle
	QueryCategories
	QueryStats
)

var QueryKinds = []QueryKind{QueryPublished, QueryAll, QueryMine, QueryArticle, QueryCategories, QueryStats}

func (k QueryKind) String() string {
	switch k {
	case QueryPublished:
		return "published"
	case QueryAll:
		return "all"
	case QueryMine:
		return "mine"
	case QueryArticle:
		return "article"
	case QueryCategories:
		return "categories"
	case QueryStats:
		return "stats"
	}
	return "unknown"
}

// ParseQueryKind resolves a query kind by name.
func ParseQueryKind(s string) (QueryKind, bool) {
	for _, k := range QueryKinds {
		if k.String() == strings.ToLower(s) {
			return k, true
		}
	}
	return 0, false
}

// Listing reports whether k is paginated.
func (k QueryKind) Listing() bool {
	switch k {
	case QueryPublished, QueryAll, QueryMine:
		return true
	case QueryArticle, QueryCategories, QueryStats:
		return false
	}
	return false
}

// tags returns the invalidation tags a read of k is captured under.
func (k QueryKind) tags(p Params) []domain.Tag {
	switch k {
	case QueryPublished, QueryAll, QueryMine, QueryStats:
		return []domain.Tag{domain.ArticleTag()}
	case QueryArticle:
		return []domain.Tag{domain.ArticleIDTag(p.ID)}
	case QueryCategories:
		return []domain.Tag{domain.CategoryTag()}
	}
	return nil
}

// Params are the parameters of a query. Page is zero-based.
type Params struct {
	ID   string
	Page int
	Size int
}

func (p Params) normalize(k QueryKind) Params {
	if !k.Listing() {
		return Params{ID: p.ID}
	}
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	p.ID = ""
	return p
}

func (p Params) String() string {
	if p.ID != "" {
		return p.ID
	}
	return fmt.Sprintf("page=%d&size=%d", p.Page, p.Size)
}

// Result holds the value of one query. Exactly one field is set.
type Result struct {
	Kind       QueryKind
	Page       *domain.Page
	Article    *domain.Article
	Categories []domain.Category
	Stats      *domain.Stats
}

// Querier serves reads through the cache. Each read is scoped to the
// session current when it starts; entries read under a session also carry
// that session's tag so they go stale when it ends.
type Querier struct {
	sessions  SessionSource
	authority ports.Authority
	cache     *cache.Cache
	now       func() time.Time
	log       zerolog.Logger
}

func NewQuerier(sessions SessionSource, authority ports.Authority, c *cache.Cache, log zerolog.Logger, opts ...QuerierOption) *Querier {
	q := &Querier{
		sessions:  sessions,
		authority: authority,
		cache:     c,
		now:       time.Now,
		log:       log.With().Str("component", "query").Logger(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

type QuerierOption func(*Querier)

func WithQueryClock(now func() time.Time) QuerierOption {
	return func(q *Querier) { q.now = now }
}

// Query runs kind with params.
func (q *Querier) Query(ctx context.Context, kind QueryKind, params Params) (*Result, error) {
	params = params.normalize(kind)
	op := "query " + kind.String()
	if kind == QueryArticle && strings.TrimSpace(params.ID) == "" {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: op, Msg: "article id is required"}
	}

	sess, _ := q.sessions.Current(ctx)
	if err := q.guard(op, kind, sess); err != nil {
		return nil, err
	}

	var token, scope string
	tags := kind.tags(params)
	if sess != nil {
		token, scope = sess.Token, sess.Identity.SubjectID
		tags = append(tags, domain.SessionTag(scope))
	}
	key := cache.Key{Scope: scope, Kind: kind.String(), Params: params.String()}
	req := ports.PageRequest{Page: params.Page, Size: params.Size}

	res := &Result{Kind: kind}
	var err error
	switch kind {
	case QueryPublished:
		res.Page, err = cache.Read(ctx, q.cache, key, tags, func(ctx context.Context) (*domain.Page, error) {
			return q.authority.ListPublished(ctx, token, req)
		})
	case QueryAll:
		res.Page, err = cache.Read(ctx, q.cache, key, tags, func(ctx context.Context) (*domain.Page, error) {
			return q.authority.ListAll(ctx, token, req)
		})
	case QueryMine:
		res.Page, err = cache.Read(ctx, q.cache, key, tags, func(ctx context.Context) (*domain.Page, error) {
			return q.authority.ListMine(ctx, token, req)
		})
	case QueryArticle:
		res.Article, err = cache.Read(ctx, q.cache, key, tags, func(ctx context.Context) (*domain.Article, error) {
			return q.authority.GetArticle(ctx, token, params.ID)
		})
		if err == nil && res.Article == nil {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		if err == nil && res.Article.Status != domain.StatusPublished &&
			!permission.CanPerform(sess, q.now(), domain.ActionViewUnpublished, res.Article) {
			return nil, &domain.Error{Kind: domain.KindPermissionDenied, Op: op, Msg: "article is not published"}
		}
	case QueryCategories:
		res.Categories, err = cache.Read(ctx, q.cache, key, tags, func(ctx context.Context) ([]domain.Category, error) {
			return q.authority.Categories(ctx, token)
		})
	case QueryStats:
		res.Stats, err = cache.Read(ctx, q.cache, key, tags, func(ctx context.Context) (*domain.Stats, error) {
			return q.authority.Stats(ctx, token)
		})
	default:
		return nil, &domain.Error{Kind: domain.KindValidation, Op: "query", Msg: fmt.Sprintf("unknown query kind %d", kind)}
	}
	if err != nil {
		q.log.Debug().Err(err).Str("query", kind.String()).Msg("query failed")
		revokeOnRejection(ctx, q.sessions, token, err, q.log)
		if domain.KindOf(err) == domain.KindUnknown {
			return nil, domain.RemoteError(op, 0, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if kind.Listing() && res.Page == nil {
		res.Page = &domain.Page{Number: params.Page, Size: params.Size}
	}
	return res, nil
}

// guard rejects reads the session may not make before anything is fetched.
func (q *Querier) guard(op string, kind QueryKind, sess *domain.Session) error {
	switch kind {
	case QueryPublished, QueryArticle, QueryCategories:
		return nil
	case QueryAll, QueryStats:
		if d := permission.Evaluate(sess, q.now(), domain.ActionViewUnpublished, nil); !d.Allowed {
			return &domain.Error{Kind: domain.KindPermissionDenied, Op: op, Msg: d.Reason}
		}
		return nil
	case QueryMine:
		if !sess.Active(q.now()) {
			return fmt.Errorf("%s: %w", op, domain.ErrNoSession)
		}
		return nil
	}
	return nil
}

// Pager walks a listing page by page. It is restartable: Reset starts it
// over from the first page, and every page is read through the cache.
type Pager struct {
	q    *Querier
	kind QueryKind
	size int
	next int
	done bool
}

// Pages returns a pager over a listing query.
func (q *Querier) Pages(kind QueryKind, size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{q: q, kind: kind, size: size}
}

// Next returns the following page, or ErrNoMorePages after the last one.
func (p *Pager) Next(ctx context.Context) (*domain.Page, error) {
	if !p.kind.Listing() {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: "pages", Msg: p.kind.String() + " is not a listing"}
	}
	if p.done {
		return nil, ErrNoMorePages
	}
	res, err := p.q.Query(ctx, p.kind, Params{Page: p.next, Size: p.size})
	if err != nil {
		return nil, err
	}
	p.next++
	if res.Page.Last() {
		p.done = true
	}
	return res.Page, nil
}

// Reset rewinds the pager to the first page.
func (p *Pager) Reset() {
	p.next = 0
	p.done = false
}
