package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fixedSessions is a SessionSource that returns whatever session is set.
type fixedSessions struct {
	sess    *domain.Session
	revoked []string
}

func (f *fixedSessions) Current(context.Context) (*domain.Session, bool) {
	return f.sess, f.sess != nil
}

func (f *fixedSessions) Revoke(_ context.Context, token string) error {
	if f.sess != nil && f.sess.Token == token {
		f.revoked = append(f.revoked, token)
		f.sess = nil
	}
	return nil
}

func sessionFor(id string, role domain.Role) *domain.Session {
	return &domain.Session{
		Token: "tok-" + id,
		Identity: domain.Identity{
			SubjectID: id,
			Email:     id + "@press.test",
			Role:      role,
			ExpiresAt: epoch.Add(time.Hour),
		},
	}
}

// fakeAuthority keeps articles in memory and counts calls per method.
type fakeAuthority struct {
	mu       sync.Mutex
	articles map[string]*domain.Article
	calls    map[string]int
	seq      int
	failWith error
	keys     []string
	// onGet runs inside GetArticle; tests use it to interleave mutations.
	onGet func()
}

func newFakeAuthority(articles ...*domain.Article) *fakeAuthority {
	f := &fakeAuthority{articles: map[string]*domain.Article{}, calls: map[string]int{}}
	for _, a := range articles {
		cp := *a
		f.articles[a.ID] = &cp
	}
	return f
}

func (f *fakeAuthority) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAuthority) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.failWith
}

func (f *fakeAuthority) set(a *domain.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.articles[a.ID] = &cp
}

func (f *fakeAuthority) Authenticate(context.Context, domain.Credentials) (string, error) {
	return "", f.hit("Authenticate")
}

func (f *fakeAuthority) Register(context.Context, domain.Registration) (*domain.User, error) {
	return nil, f.hit("Register")
}

func (f *fakeAuthority) Me(context.Context, string) (*domain.User, error) {
	return nil, f.hit("Me")
}

func (f *fakeAuthority) list(name string, req ports.PageRequest, keep func(*domain.Article) bool) (*domain.Page, error) {
	if err := f.hit(name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Article
	for _, a := range f.articles {
		if keep(a) {
			all = append(all, *a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	start := req.Page * req.Size
	if start > total {
		start = total
	}
	end := start + req.Size
	if end > total {
		end = total
	}
	pages := (total + req.Size - 1) / req.Size
	return &domain.Page{Content: all[start:end], Number: req.Page, Size: req.Size, TotalElements: int64(total), TotalPages: pages}, nil
}

func (f *fakeAuthority) ListPublished(_ context.Context, _ string, req ports.PageRequest) (*domain.Page, error) {
	return f.list("ListPublished", req, func(a *domain.Article) bool { return a.Status == domain.StatusPublished })
}

func (f *fakeAuthority) ListAll(_ context.Context, _ string, req ports.PageRequest) (*domain.Page, error) {
	return f.list("ListAll", req, func(*domain.Article) bool { return true })
}

func (f *fakeAuthority) ListMine(_ context.Context, token string, req ports.PageRequest) (*domain.Page, error) {
	return f.list("ListMine", req, func(a *domain.Article) bool { return "tok-"+a.AuthorID == token })
}

func (f *fakeAuthority) GetArticle(_ context.Context, _ string, id string) (*domain.Article, error) {
	if err := f.hit("GetArticle"); err != nil {
		return nil, err
	}
	if f.onGet != nil {
		f.onGet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAuthority) Stats(context.Context, string) (*domain.Stats, error) {
	if err := f.hit("Stats"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &domain.Stats{Total: int64(len(f.articles))}
	for _, a := range f.articles {
		switch a.Status {
		case domain.StatusPending:
			s.Pending++
		case domain.StatusPublished:
			s.Published++
		case domain.StatusRejected:
			s.Rejected++
		}
	}
	return s, nil
}

func (f *fakeAuthority) Categories(context.Context, string) ([]domain.Category, error) {
	if err := f.hit("Categories"); err != nil {
		return nil, err
	}
	return []domain.Category{{ID: "c1", Name: "Industry"}}, nil
}

func (f *fakeAuthority) CreateArticle(_ context.Context, token string, d domain.Draft, key string) (*domain.Article, error) {
	if err := f.hit("CreateArticle"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.keys = append(f.keys, key)
	a := &domain.Article{
		ID:         fmt.Sprintf("new-%d", f.seq),
		Title:      d.Title,
		Content:    d.Content,
		CategoryID: d.CategoryID,
		AuthorID:   token[len("tok-"):],
		Status:     d.Status,
		CreatedAt:  epoch,
		UpdatedAt:  epoch,
	}
	f.articles[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeAuthority) UpdateArticle(_ context.Context, _ string, id string, d domain.Draft) (*domain.Article, error) {
	if err := f.hit("UpdateArticle"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a.Title, a.Content, a.CategoryID, a.CoverImage = d.Title, d.Content, d.CategoryID, d.CoverImage
	a.Status = d.Status
	a.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	cp := *a
	return &cp, nil
}

func (f *fakeAuthority) DeleteArticle(_ context.Context, _ string, id string) error {
	if err := f.hit("DeleteArticle"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.articles, id)
	return nil
}

func (f *fakeAuthority) PublishArticle(_ context.Context, _ string, id string) (*domain.Article, error) {
	if err := f.hit("PublishArticle"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.articles[id]
	a.Status = domain.StatusPublished
	a.RejectionReason = ""
	a.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	cp := *a
	return &cp, nil
}

func (f *fakeAuthority) RejectArticle(_ context.Context, _ string, id, reason string) (*domain.Article, error) {
	if err := f.hit("RejectArticle"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.articles[id]
	a.Status = domain.StatusRejected
	a.RejectionReason = reason
	a.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	cp := *a
	return &cp, nil
}
