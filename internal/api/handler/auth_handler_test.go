package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ibtissamelhani/induspress/internal/api/middleware"
	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, reg domain.Registration) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.User, error)
	meFn       func(ctx context.Context, id string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	return s.registerFn(ctx, reg)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Me(ctx context.Context, id string) (*domain.User, error) {
	return s.meFn(ctx, id)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, reg domain.Registration) (*domain.User, error) {
			if reg.Email != "alice@example.com" || reg.Role != domain.RoleAuthor {
				t.Fatalf("unexpected registration: %+v", reg)
			}
			return &domain.User{ID: "u1", Email: reg.Email, FirstName: reg.FirstName, Role: reg.Role}, nil
		},
	}
	handler := NewAuthHandler(stub)

	body := `{"email":"alice@example.com","password":"secret1","firstName":"Alice","lastName":"Doe","role":"AUTHOR"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", body), rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var user map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if user["email"] != "alice@example.com" || user["role"] != "AUTHOR" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must not be rendered")
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, reg domain.Registration) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub)

	body := `{"email":"bob@example.com","password":"secret1","firstName":"Bob","lastName":"Doe","role":"EDITOR"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", body), httptest.NewRecorder())

	if err := handler.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists to reach the error handler, got %v", err)
	}
}

func TestAuthHandler_Register_Invalid(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, reg domain.Registration) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"not json", "not-json", http.StatusBadRequest},
		{"missing fields", `{"email":"bob@example.com"}`, http.StatusUnprocessableEntity},
		{"bad email", `{"email":"bob","password":"secret1","firstName":"B","lastName":"D","role":"AUTHOR"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho()
			c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", tc.body), httptest.NewRecorder())
			if got := httpCode(t, handler.Register(c)); got != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, got)
			}
		})
	}
}

func TestAuthHandler_Authenticate_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", &domain.User{ID: "u1", Email: email, Role: domain.RoleEditor}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/authenticate", `{"email":"alice@example.com","password":"secret"}`), rec)

	if err := handler.Authenticate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["role"] != "EDITOR" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
}

func TestAuthHandler_Authenticate_InvalidCredentials(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/authenticate", `{"email":"alice@example.com","password":"bad"}`), httptest.NewRecorder())

	if err := handler.Authenticate(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Authenticate_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	for _, body := range []string{"{", `{"email":"alice@example.com"}`} {
		c := e.NewContext(jsonRequest(http.MethodPost, "/auth/authenticate", body), httptest.NewRecorder())
		if got := httpCode(t, handler.Authenticate(c)); got != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, got)
		}
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		meFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "alice@example.com", Role: domain.RoleAuthor}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), rec)
	if got := httpCode(t, handler.Me(c)); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", got)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), rec)
	c.Set(middleware.SessionKey, &domain.Session{Identity: domain.Identity{SubjectID: "u1", Role: domain.RoleAuthor}})
	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"id":"u1"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
