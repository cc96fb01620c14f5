package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// fakeAPI is a minimal press API that signs tokens for a single user.
type fakeAPI struct {
	role        string
	published   atomic.Int32
	lastIdemKey atomic.Value
	srv         *httptest.Server
}

func newFakeAPI(t *testing.T, role string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{role: role}
	now := time.Now().UTC()
	article := domain.Article{
		ID:              "a1",
		Title:           "Smelter retrofit",
		Content:         strings.Repeat("x", 60),
		CategoryID:      "industry",
		AuthorID:        "u1",
		AuthorFirstName: "Ada",
		AuthorLastName:  "Lovelace",
		Status:          domain.StatusPublished,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/authenticate", func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
			return
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":       "u1",
			"email":     creds.Email,
			"role":      f.role,
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("test-secret"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("GET /articles", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.Page{Content: []domain.Article{article}, Number: 0, Size: 10, TotalElements: 1, TotalPages: 1})
	})
	mux.HandleFunc("GET /articles/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != article.ID {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(article)
	})
	mux.HandleFunc("POST /articles", func(w http.ResponseWriter, r *http.Request) {
		f.lastIdemKey.Store(r.Header.Get("Idempotency-Key"))
		var d domain.Draft
		_ = json.NewDecoder(r.Body).Decode(&d)
		created := article
		created.ID, created.Title, created.Content, created.CategoryID = "a2", d.Title, d.Content, d.CategoryID
		created.Status = domain.StatusPending
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(created)
	})
	mux.HandleFunc("PATCH /articles/{id}/publish", func(w http.ResponseWriter, r *http.Request) {
		f.published.Add(1)
		_ = json.NewEncoder(w).Encode(article)
	})
	mux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Category{{ID: "industry", Name: "Industry"}, {ID: "tech", Name: "Tech"}})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

type harness struct {
	env envconfig.Lookuper
}

func newHarness(t *testing.T, api *fakeAPI) *harness {
	return &harness{env: envconfig.MapLookuper(map[string]string{
		"PRESS_API_URL": api.srv.URL,
		"SESSION_PATH":  filepath.Join(t.TempDir(), "session.yaml"),
		"LOG_LEVEL":     "disabled",
	})}
}

// run executes one pressctl invocation and returns stdout and the error.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(h.env)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append(args, "--no-color"))
	err := root.Execute()
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	api := newFakeAPI(t, "REDACTEUR")
	h := newHarness(t, api)

	out, err := h.run(t, "login", "--email", "ada@example.com", "--password", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada Lovelace (AUTHOR)")

	out, err = h.run(t, "whoami", "-o", "json")
	require.NoError(t, err)
	var id IdentityOutput
	require.NoError(t, json.Unmarshal([]byte(out), &id))
	assert.Equal(t, "u1", id.ID)
	assert.Equal(t, "AUTHOR", id.Role)
	assert.Equal(t, "ada@example.com", id.Email)

	out, err = h.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out.\n", out)

	_, err = h.run(t, "whoami")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoSession)
	assert.Equal(t, 3, exitCode(err))
}

func TestLogin_BadPasswordKeepsNoSession(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)

	_, err := h.run(t, "login", "--email", "ada@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidToken, domain.KindOf(err))

	_, err = h.run(t, "whoami")
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)

	root := NewRootCmd(h.env)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("s3cret\n"))
	root.SetArgs([]string{"login", "--email", "ada@example.com", "--password-stdin", "--no-color"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Signed in")
}

func TestArticlesList(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)

	out, err := h.run(t, "articles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Smelter retrofit")
	assert.Contains(t, out, "PUBLISHED")
	assert.Contains(t, out, "page 1 of 1, 1 articles")

	out, err = h.run(t, "articles", "list", "--all-pages", "-o", "yaml")
	require.NoError(t, err)
	var items []domain.Article
	require.NoError(t, yaml.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
}

func TestArticlesList_UnknownScope(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)

	_, err := h.run(t, "articles", "list", "--scope", "categories")
	require.Error(t, err)
	assert.Equal(t, 4, exitCode(err))
}

func TestArticlesCreate_SendsIdempotencyKey(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)
	_, err := h.run(t, "login", "--email", "ada@example.com", "--password", "s3cret")
	require.NoError(t, err)

	out, err := h.run(t, "articles", "create",
		"--title", "Blast furnace notes",
		"--category", "industry",
		"--content", strings.Repeat("molten iron ", 6))
	require.NoError(t, err)
	assert.Contains(t, out, "Submitted a2 [PENDING]")

	key, _ := api.lastIdemKey.Load().(string)
	assert.NotEmpty(t, key)
}

func TestArticlesCreate_InvalidDraftNeverReachesAPI(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)
	_, err := h.run(t, "login", "--email", "ada@example.com", "--password", "s3cret")
	require.NoError(t, err)

	_, err = h.run(t, "articles", "create", "--title", "Hi", "--category", "industry", "--content", "short")
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Nil(t, api.lastIdemKey.Load())
}

func TestArticlesPublish_AuthorDenied(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)
	_, err := h.run(t, "login", "--email", "ada@example.com", "--password", "s3cret")
	require.NoError(t, err)

	_, err = h.run(t, "articles", "publish", "a1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.Equal(t, 3, exitCode(err))
	assert.Zero(t, api.published.Load())
}

func TestCan(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)
	_, err := h.run(t, "login", "--email", "ada@example.com", "--password", "s3cret")
	require.NoError(t, err)

	out, err := h.run(t, "can", "create_article")
	require.NoError(t, err)
	assert.Equal(t, "CREATE_ARTICLE: allowed\n", out)

	out, err = h.run(t, "can", "PUBLISH_ARTICLE")
	require.NoError(t, err)
	assert.Equal(t, "PUBLISH_ARTICLE: denied\n", out)

	_, err = h.run(t, "can", "FLY")
	assert.Equal(t, 4, exitCode(err))
}

func TestCategories(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)

	out, err := h.run(t, "categories", "-o", "json")
	require.NoError(t, err)
	var cats []domain.Category
	require.NoError(t, json.Unmarshal([]byte(out), &cats))
	assert.Len(t, cats, 2)
}

func TestUnknownOutputFormat(t *testing.T) {
	api := newFakeAPI(t, "AUTHOR")
	h := newHarness(t, api)

	_, err := h.run(t, "categories", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NewError(domain.KindInvalidToken, "op", "bad"), 2},
		{domain.NewError(domain.KindExpired, "op", "late"), 2},
		{fmt.Errorf("wrapped: %w", domain.ErrNoSession), 3},
		{domain.NewError(domain.KindValidation, "op", "short"), 4},
		{domain.NewError(domain.KindConflict, "op", "stale"), 5},
		{domain.NewError(domain.KindRemoteFailure, "op", "down"), 6},
		{errors.New("boom"), 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, exitCode(tc.err), tc.err.Error())
	}
}

func TestPrintError_SuggestsLogin(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, domain.NewError(domain.KindExpired, "establish session", "token expired"))
	assert.Contains(t, buf.String(), "pressctl login")
}
