package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

const testSecret = "secret"

type stubArticles struct {
	ports.ArticleService
	err error
}

func (s *stubArticles) ListAll(_ context.Context, actor *domain.Session, req ports.PageRequest) (*domain.Page, error) {
	return &domain.Page{Content: []domain.Article{}, Size: req.Size}, s.err
}

func (s *stubArticles) Publish(_ context.Context, actor *domain.Session, id string) (*domain.Article, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Article{ID: id, Status: domain.StatusPublished}, nil
}

type stubAuth struct{ ports.AuthService }

func bearer(t *testing.T, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func newTestRouter(articles ports.ArticleService) *echo.Echo {
	return NewRouter(Deps{
		Auth:      &stubAuth{},
		Articles:  articles,
		Readiness: nil,
		JWTSecret: testSecret,
		Log:       zerolog.Nop(),
	})
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_EditorOnlyRoutes(t *testing.T) {
	e := newTestRouter(&stubArticles{})

	cases := []struct {
		name string
		auth string
		code int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"author", bearer(t, "AUTHOR"), http.StatusForbidden},
		{"editor", bearer(t, "EDITOR"), http.StatusOK},
		{"editor alias", bearer(t, "EDITEUR"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, path := range []string{BasePath + "/articles/all", BasePath + "/articles/All"} {
				if rec := serve(e, http.MethodGet, path, tc.auth); rec.Code != tc.code {
					t.Fatalf("%s: expected %d, got %d", path, tc.code, rec.Code)
				}
			}
		})
	}
}

func TestRouter_DomainErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{domain.ErrInvalidTransition, http.StatusForbidden, "PermissionDenied"},
		{domain.NewError(domain.KindPermissionDenied, "publish", "editor role required"), http.StatusForbidden, "PermissionDenied"},
		{domain.ErrNotFound, http.StatusNotFound, "Conflict"},
		{domain.NewError(domain.KindConflict, "create", "in progress"), http.StatusConflict, "Conflict"},
		{fmt.Errorf("validate draft: %w", domain.ErrCategoryNotFound), http.StatusBadRequest, "ValidationError"},
		{domain.ErrNoSession, http.StatusForbidden, "PermissionDenied"},
		{errors.New("mongo exploded"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			e := newTestRouter(&stubArticles{err: tc.err})
			rec := serve(e, http.MethodPatch, BasePath+"/articles/a1/publish", bearer(t, "EDITOR"))
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Kind != tc.kind || body.Error == "" {
				t.Fatalf("unexpected envelope %+v", body)
			}
			if tc.code == http.StatusInternalServerError && body.Error != "internal server error" {
				t.Fatalf("internal errors must not leak: %q", body.Error)
			}
		})
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	e := newTestRouter(&stubArticles{})

	if rec := serve(e, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("readiness without checks: expected 200, got %d", rec.Code)
	}
	_ = serve(e, http.MethodGet, BasePath+"/articles/all", bearer(t, "EDITOR"))
	rec := serve(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	e := newTestRouter(&stubArticles{})
	rec := serve(e, http.MethodGet, BasePath+"/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
