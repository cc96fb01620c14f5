package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

type stubArticleRepo struct {
	items map[string]*domain.Article
}

func newStubArticleRepo(articles ...*domain.Article) *stubArticleRepo {
	r := &stubArticleRepo{items: map[string]*domain.Article{}}
	for _, a := range articles {
		cp := *a
		r.items[a.ID] = &cp
	}
	return r
}

func (r *stubArticleRepo) Create(_ context.Context, a *domain.Article) error {
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *stubArticleRepo) FindByID(_ context.Context, id string) (*domain.Article, error) {
	a, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *stubArticleRepo) Replace(_ context.Context, a *domain.Article) error {
	if _, ok := r.items[a.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *stubArticleRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *stubArticleRepo) List(_ context.Context, f ports.ListArticlesFilter) ([]domain.Article, int64, error) {
	var all []domain.Article
	for _, a := range r.items {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.AuthorID != "" && a.AuthorID != f.AuthorID {
			continue
		}
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := f.Page * f.Size
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *stubArticleRepo) CountByStatus(context.Context) (map[domain.ArticleStatus]int64, error) {
	out := map[domain.ArticleStatus]int64{}
	for _, a := range r.items {
		out[a.Status]++
	}
	return out, nil
}

type stubCategoryRepo struct{}

func (stubCategoryRepo) List(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: "c1", Name: "Industry"}}, nil
}

func (stubCategoryRepo) FindByID(_ context.Context, id string) (*domain.Category, error) {
	if id != "c1" {
		return nil, domain.ErrCategoryNotFound
	}
	return &domain.Category{ID: "c1", Name: "Industry"}, nil
}

type stubIdem struct {
	done map[string]string
}

func (s *stubIdem) Reserve(_ context.Context, subject, key string) (string, bool, error) {
	if id, ok := s.done[subject+key]; ok {
		return id, false, nil
	}
	return "", true, nil
}

func (s *stubIdem) Complete(_ context.Context, subject, key, id string) error {
	s.done[subject+key] = id
	return nil
}

func (s *stubIdem) Release(context.Context, string, string) error { return nil }

var content = strings.Repeat("Plant operators share maintenance notes. ", 3)

func actor(id string, role domain.Role) *domain.Session {
	return &domain.Session{Token: "t", Identity: domain.Identity{
		SubjectID: id, Role: role, FirstName: "Ada", LastName: "L", ExpiresAt: time.Now().Add(time.Hour),
	}}
}

func stored(id, author string, status domain.ArticleStatus) *domain.Article {
	a := &domain.Article{ID: id, Title: "Stored " + id, Content: content, CategoryID: "c1", AuthorID: author, Status: status,
		CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour)}
	if status == domain.StatusRejected {
		a.RejectionReason = "sources"
	}
	return a
}

type articleFixture struct {
	svc    ports.ArticleService
	repo   *stubArticleRepo
	events *stubEventRepo
}

func newArticleFixture(articles ...*domain.Article) *articleFixture {
	f := &articleFixture{repo: newStubArticleRepo(articles...), events: &stubEventRepo{}}
	rec := NewEventService(f.events, zerolog.Nop())
	f.svc = NewArticleService(f.repo, stubCategoryRepo{}, f.events, rec, &stubIdem{done: map[string]string{}}, zerolog.Nop())
	return f
}

func TestArticleService_Create(t *testing.T) {
	f := newArticleFixture()
	draft := domain.Draft{Title: "New press line", Content: content, CategoryID: "c1", Status: domain.StatusPublished}

	a, err := f.svc.Create(context.Background(), actor("au", domain.RoleAuthor), draft, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != domain.StatusPending || a.AuthorID != "au" || a.CategoryName != "Industry" {
		t.Fatalf("unexpected article %+v", a)
	}
	if len(f.events.inserted) != 1 || f.events.inserted[0].Mutation != "create" {
		t.Fatalf("expected create event, got %+v", f.events.inserted)
	}
}

func TestArticleService_Create_Idempotent(t *testing.T) {
	f := newArticleFixture()
	draft := domain.Draft{Title: "New press line", Content: content, CategoryID: "c1"}
	ctx := context.Background()

	first, err := f.svc.Create(ctx, actor("au", domain.RoleAuthor), draft, "k1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := f.svc.Create(ctx, actor("au", domain.RoleAuthor), draft, "k1")
	if err != nil {
		t.Fatalf("replayed Create: %v", err)
	}
	if first.ID != second.ID || len(f.repo.items) != 1 {
		t.Fatalf("replay created a second article: %s vs %s", first.ID, second.ID)
	}
}

func TestArticleService_Create_Rejections(t *testing.T) {
	ctx := context.Background()
	good := domain.Draft{Title: "New press line", Content: content, CategoryID: "c1"}

	f := newArticleFixture()
	if _, err := f.svc.Create(ctx, actor("ed", domain.RoleEditor), good, ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("editor create: expected PermissionDenied, got %v", err)
	}
	if _, err := f.svc.Create(ctx, nil, good, ""); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("anonymous create: expected ErrNoSession, got %v", err)
	}
	bad := good
	bad.CategoryID = "missing"
	if _, err := f.svc.Create(ctx, actor("au", domain.RoleAuthor), bad, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown category: expected validation error, got %v", err)
	}
	bad = good
	bad.Content = "short"
	if _, err := f.svc.Create(ctx, actor("au", domain.RoleAuthor), bad, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("short content: expected validation error, got %v", err)
	}
	if len(f.repo.items) != 0 {
		t.Fatal("rejected create persisted an article")
	}
}

func TestArticleService_PublishAndReject(t *testing.T) {
	f := newArticleFixture(stored("1", "au", domain.StatusRejected))
	ctx := context.Background()
	ed := actor("ed", domain.RoleEditor)

	a, err := f.svc.Publish(ctx, ed, "1")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if a.Status != domain.StatusPublished || a.RejectionReason != "" {
		t.Fatalf("unexpected article after publish %+v", a)
	}

	if _, err := f.svc.Reject(ctx, ed, "1", "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank reason: expected validation error, got %v", err)
	}
	a, err = f.svc.Reject(ctx, ed, "1", " too short ")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if a.Status != domain.StatusRejected || a.RejectionReason != "too short" {
		t.Fatalf("unexpected article after reject %+v", a)
	}
	if _, err := f.svc.Reject(ctx, ed, "1", "again"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("re-reject: expected PermissionDenied, got %v", err)
	}
	if _, err := f.svc.Publish(ctx, actor("au", domain.RoleAuthor), "1"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("author publish: expected PermissionDenied, got %v", err)
	}
}

func TestArticleService_Update(t *testing.T) {
	f := newArticleFixture(stored("1", "au", domain.StatusRejected), stored("2", "au", domain.StatusPublished))
	ctx := context.Background()
	draft := domain.Draft{Title: "Revised title", Content: content, CategoryID: "c1"}

	a, err := f.svc.Update(ctx, actor("au", domain.RoleAuthor), "1", draft)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a.Status != domain.StatusPending || a.RejectionReason != "" || a.Title != "Revised title" {
		t.Fatalf("unexpected article %+v", a)
	}
	if !a.UpdatedAt.After(a.CreatedAt) {
		t.Fatal("updated instant not bumped")
	}

	if _, err := f.svc.Update(ctx, actor("other", domain.RoleAuthor), "1", draft); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("non-owner: expected PermissionDenied, got %v", err)
	}
	if _, err := f.svc.Update(ctx, actor("au", domain.RoleAuthor), "2", draft); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("published: expected ErrInvalidTransition, got %v", err)
	}
}

func TestArticleService_Delete(t *testing.T) {
	f := newArticleFixture(stored("1", "au", domain.StatusPending))
	ctx := context.Background()

	if err := f.svc.Delete(ctx, actor("ed", domain.RoleEditor), "1"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("non-owner editor: expected PermissionDenied, got %v", err)
	}
	if err := f.svc.Delete(ctx, actor("au", domain.RoleAuthor), "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, actor("au", domain.RoleAuthor), "1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	history, err := f.svc.History(ctx, actor("ed", domain.RoleEditor), "1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Mutation != "delete" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestArticleService_Listings(t *testing.T) {
	f := newArticleFixture(
		stored("1", "au", domain.StatusPublished),
		stored("2", "au", domain.StatusPending),
		stored("3", "other", domain.StatusRejected),
	)
	ctx := context.Background()

	pub, err := f.svc.ListPublished(ctx, ports.PageRequest{})
	if err != nil || pub.TotalElements != 1 || pub.Size != 10 {
		t.Fatalf("ListPublished: %+v, %v", pub, err)
	}
	mine, err := f.svc.ListMine(ctx, actor("au", domain.RoleAuthor), ports.PageRequest{Size: 1})
	if err != nil || mine.TotalElements != 2 || mine.TotalPages != 2 || len(mine.Content) != 1 {
		t.Fatalf("ListMine: %+v, %v", mine, err)
	}
	if _, err := f.svc.ListAll(ctx, actor("au", domain.RoleAuthor), ports.PageRequest{}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("author ListAll: expected PermissionDenied, got %v", err)
	}
	all, err := f.svc.ListAll(ctx, actor("ed", domain.RoleEditor), ports.PageRequest{})
	if err != nil || all.TotalElements != 3 {
		t.Fatalf("ListAll: %+v, %v", all, err)
	}

	st, err := f.svc.Stats(ctx, actor("ed", domain.RoleEditor))
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if *st != (domain.Stats{Total: 3, Pending: 1, Published: 1, Rejected: 1}) {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestArticleService_GetUnpublished(t *testing.T) {
	f := newArticleFixture(stored("1", "au", domain.StatusPending))
	ctx := context.Background()

	if _, err := f.svc.Get(ctx, nil, "1"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("anonymous: expected PermissionDenied, got %v", err)
	}
	if _, err := f.svc.Get(ctx, actor("au", domain.RoleAuthor), "1"); err != nil {
		t.Fatalf("owner: %v", err)
	}
}
