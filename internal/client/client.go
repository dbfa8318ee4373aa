// Package client is the back-office side of the API: a remote data accessor
// for the admin resources and a list controller with debounced search.
package client

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

	"go.uber.org/zap"

	"vitrine/internal/domain/crud"
	"vitrine/internal/params"
)

// FallbackMessage is reported when the server gave no usable error message.
const FallbackMessage = "Erro inesperado. Tente novamente."

const SessionCookie = "session_token"

// APIError is a failed mutation.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Query is the list request state.
type Query struct {
	Page   int
	Limit  int
	Search string
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  *zap.SugaredLogger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithToken(token string) Option        { return func(c *Client) { c.token = token } }
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token is the current session token.
func (c *Client) Token() string { return c.token }

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

// Login exchanges credentials for a session token and keeps it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// FetchList requests one page of an admin resource.
func FetchList[T any](ctx context.Context, c *Client, entity string, q Query) (*crud.Page[T], error) {
	var page crud.Page[T]
	if err := c.do(ctx, http.MethodGet, "/api/private/"+entity, q.values(), nil, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return &page, nil
}

// List is FetchList that never fails: any error yields an empty page.
func List[T any](ctx context.Context, c *Client, entity string, q Query) *crud.Page[T] {
	page, err := FetchList[T](ctx, c, entity, q)
	if err != nil {
		c.logger.Warnw("list fetch failed", "entity", entity, "error", err)
		return EmptyPage[T](q)
	}
	return page
}

// EmptyPage is the page shown when a fetch fails.
func EmptyPage[T any](q Query) *crud.Page[T] {
	return &crud.Page[T]{Data: []T{}, Meta: params.Pagination{Page: q.Page, Limit: q.Limit}}
}

func Get[T any](ctx context.Context, c *Client, entity, id string) (*T, error) {
	out := new(T)
	if err := c.do(ctx, http.MethodGet, "/api/private/"+entity+"/"+url.PathEscape(id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func Create[T any](ctx context.Context, c *Client, entity string, body any) (*T, error) {
	out := new(T)
	if err := c.do(ctx, http.MethodPost, "/api/private/"+entity, nil, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func Update[T any](ctx context.Context, c *Client, entity, id string, body any) (*T, error) {
	out := new(T)
	if err := c.do(ctx, http.MethodPatch, "/api/private/"+entity+"/"+url.PathEscape(id), nil, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func Delete(ctx context.Context, c *Client, entity, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/private/"+entity+"/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.token})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: FallbackMessage}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil || payload.Error == "" {
		return &APIError{Status: resp.StatusCode, Message: FallbackMessage}
	}
	return &APIError{Status: resp.StatusCode, Message: payload.Error}
}

// Message extracts the user-facing message of err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return FallbackMessage
}
