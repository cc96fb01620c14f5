// Package remote is the HTTP client of the press API. It implements
// ports.Authority and translates transport statuses into domain error kinds.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10

	// HeaderIdempotencyKey deduplicates article creation on the authority.
	HeaderIdempotencyKey = "Idempotency-Key"
)

// Client talks to the press API rooted at baseURL (e.g. http://host/api/v1).
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout on a private copy of the
// current *http.Client, leaving a client passed to WithHTTPClient as is.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

func New(baseURL string, log zerolog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log.With().Str("component", "remote").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// errorBody is the error envelope rendered by the press API.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type request struct {
	method  string
	path    string
	query   url.Values
	token   string
	body    any
	headers map[string]string
}

// do sends req and decodes a 2xx JSON body into out. A 204 or an empty
// body leaves out untouched and reports decoded=false.
func (c *Client) do(ctx context.Context, op string, req request, out any) (decoded bool, err error) {
	u := *c.baseURL
	u.Path = u.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return false, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return false, fmt.Errorf("%s: build request: %w", op, err)
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		hreq.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.headers {
		hreq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Str("method", req.method).Str("path", req.path).Msg("request failed")
		return false, domain.RemoteError(op, 0, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, statusError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, domain.RemoteError(op, resp.StatusCode, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, domain.RemoteError(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return true, nil
}

// statusError maps a non-2xx response to a domain error.
func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &domain.Error{Kind: KindForStatus(resp.StatusCode), Op: op, Msg: msg, Status: resp.StatusCode}
}

// KindForStatus is the transport status → ErrorKind table.
func KindForStatus(status int) domain.ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.KindValidation
	case http.StatusUnauthorized:
		return domain.KindInvalidToken
	case http.StatusForbidden:
		return domain.KindPermissionDenied
	case http.StatusNotFound, http.StatusConflict, http.StatusPreconditionFailed:
		return domain.KindConflict
	}
	return domain.KindRemoteFailure
}

func pageQuery(req ports.PageRequest) url.Values {
	return url.Values{
		"page": []string{strconv.Itoa(req.Page)},
		"size": []string{strconv.Itoa(req.Size)},
	}
}

func articlePath(id string, suffix ...string) string {
	p := "/articles/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func (c *Client) Authenticate(ctx context.Context, creds domain.Credentials) (string, error) {
	var out tokenResponse
	if _, err := c.do(ctx, "authenticate", request{method: http.MethodPost, path: "/auth/authenticate", body: creds}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", domain.RemoteError("authenticate", http.StatusOK, errors.New("response carried no token"))
	}
	return out.Token, nil
}

func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	var out domain.User
	decoded, err := c.do(ctx, "register", request{method: http.MethodPost, path: "/auth/register", body: reg}, &out)
	if err != nil {
		return nil, err
	}
	if !decoded {
		return &domain.User{Email: reg.Email, FirstName: reg.FirstName, LastName: reg.LastName, Role: reg.Role}, nil
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var out domain.User
	if _, err := c.do(ctx, "me", request{method: http.MethodGet, path: "/auth/me", token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) listing(ctx context.Context, op, path, token string, req ports.PageRequest) (*domain.Page, error) {
	var out domain.Page
	if _, err := c.do(ctx, op, request{method: http.MethodGet, path: path, query: pageQuery(req), token: token}, &out); err != nil {
		return nil, err
	}
	if out.Size == 0 {
		out.Number, out.Size = req.Page, req.Size
	}
	return &out, nil
}

func (c *Client) ListPublished(ctx context.Context, token string, req ports.PageRequest) (*domain.Page, error) {
	return c.listing(ctx, "list published", "/articles", token, req)
}

func (c *Client) ListAll(ctx context.Context, token string, req ports.PageRequest) (*domain.Page, error) {
	return c.listing(ctx, "list all", "/articles/all", token, req)
}

func (c *Client) ListMine(ctx context.Context, token string, req ports.PageRequest) (*domain.Page, error) {
	return c.listing(ctx, "list mine", "/articles/my-articles", token, req)
}

func (c *Client) GetArticle(ctx context.Context, token, id string) (*domain.Article, error) {
	var out domain.Article
	decoded, err := c.do(ctx, "get article", request{method: http.MethodGet, path: articlePath(id), token: token}, &out)
	if err != nil {
		return nil, err
	}
	if !decoded {
		return nil, fmt.Errorf("get article %s: empty response: %w", id, domain.ErrNotFound)
	}
	return &out, nil
}

func (c *Client) Stats(ctx context.Context, token string) (*domain.Stats, error) {
	var out domain.Stats
	if _, err := c.do(ctx, "stats", request{method: http.MethodGet, path: "/articles/stats", token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Categories(ctx context.Context, token string) ([]domain.Category, error) {
	var out []domain.Category
	if _, err := c.do(ctx, "categories", request{method: http.MethodGet, path: "/categories", token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// mutation decodes the article echoed by a mutation; nil when the authority
// answered without a body.
func (c *Client) mutation(ctx context.Context, op string, req request) (*domain.Article, error) {
	var out domain.Article
	decoded, err := c.do(ctx, op, req, &out)
	if err != nil {
		return nil, err
	}
	if !decoded {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) CreateArticle(ctx context.Context, token string, draft domain.Draft, idempotencyKey string) (*domain.Article, error) {
	req := request{method: http.MethodPost, path: "/articles", token: token, body: draft}
	if idempotencyKey != "" {
		req.headers = map[string]string{HeaderIdempotencyKey: idempotencyKey}
	}
	a, err := c.mutation(ctx, "create article", req)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.RemoteError("create article", http.StatusOK, errors.New("response carried no article"))
	}
	return a, nil
}

func (c *Client) UpdateArticle(ctx context.Context, token, id string, draft domain.Draft) (*domain.Article, error) {
	return c.mutation(ctx, "update article", request{method: http.MethodPut, path: articlePath(id), token: token, body: draft})
}

func (c *Client) DeleteArticle(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, "delete article", request{method: http.MethodDelete, path: articlePath(id), token: token}, nil)
	return err
}

func (c *Client) PublishArticle(ctx context.Context, token, id string) (*domain.Article, error) {
	return c.mutation(ctx, "publish article", request{method: http.MethodPatch, path: articlePath(id, "publish"), token: token})
}

func (c *Client) RejectArticle(ctx context.Context, token, id, reason string) (*domain.Article, error) {
	return c.mutation(ctx, "reject article", request{method: http.MethodPatch, path: articlePath(id, "reject"), token: token, body: rejectRequest{Reason: reason}})
}

var _ ports.Authority = (*Client)(nil)
