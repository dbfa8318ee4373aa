package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/domain/crud"
	"vitrine/internal/params"
)

type brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestListReturnsEmptyPageOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	page := List[brand](context.Background(), c, "brand", Query{Page: 2, Limit: 10})
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.Equal(t, 2, page.Meta.Page)
}

func TestListSendsQueryAndSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/api/private/brand", r.URL.Path)
		assert.Equal(t, "nik", r.URL.Query().Get("search"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []brand{{ID: "1", Name: "Nike"}},
			"meta": map[string]any{"page": 1, "limit": 10, "total": 1, "totalPages": 1},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("tok"))
	page, err := FetchList[brand](context.Background(), c, "brand", Query{Page: 1, Limit: 10, Search: "nik"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Nike", page.Data[0].Name)
	assert.EqualValues(t, 1, page.Meta.Total)
}

func TestMutationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Já existe uma marca com este nome"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := Create[brand](context.Background(), c, "brand", map[string]string{"name": "Nike"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Já existe uma marca com este nome", Message(err))

	err = Delete(context.Background(), c, "brand", "1")
	assert.Equal(t, FallbackMessage, Message(err))
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url)
	_, err := Get[brand](context.Background(), c, "brand", "1")
	assert.Equal(t, FallbackMessage, Message(err))
}

func TestLoginKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"abc","expiresAt":"2026-01-01T00:00:00Z","user":{"id":"1","email":"a@b.com","role":"ADMIN"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", res.User.Role)
	assert.Equal(t, "abc", c.Token())
}

type recorder struct {
	mu      sync.Mutex
	queries []Query
	err     error
}

func (r *recorder) fetch(_ context.Context, q Query) (*crud.Page[brand], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	if r.err != nil {
		return nil, r.err
	}
	return &crud.Page[brand]{
		Data: []brand{{ID: "1", Name: "Nike"}},
		Meta: params.Pagination{Page: q.Page, Limit: q.Limit, Total: 1, TotalPages: 1},
	}, nil
}

func (r *recorder) calls() []Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Query(nil), r.queries...)
}

func TestSearchIsDebounced(t *testing.T) {
	rec := &recorder{}
	lc := NewListController(context.Background(), rec.fetch, WithDebounce[brand](30*time.Millisecond))
	defer lc.Close()

	lc.SetPage(3)
	require.Len(t, rec.calls(), 1)

	lc.SetSearch("n")
	lc.SetSearch("ni")
	lc.SetSearch("nik")

	require.Eventually(t, func() bool { return len(rec.calls()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	calls := rec.calls()
	require.Len(t, calls, 2, "one fetch per settled search")
	assert.Equal(t, Query{Page: 1, Limit: params.DefaultLimit, Search: "nik"}, calls[1])

	state := lc.State()
	assert.False(t, state.Loading)
	assert.Len(t, state.Items, 1)
}

func TestSameSearchKeepsPage(t *testing.T) {
	rec := &recorder{}
	lc := NewListController(context.Background(), rec.fetch, WithDebounce[brand](10*time.Millisecond))
	defer lc.Close()

	lc.SetPage(2)
	lc.SetSearch("")

	require.Eventually(t, func() bool { return len(rec.calls()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, rec.calls()[1].Page)
}

func TestFetchFailureShowsEmptyList(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	var states []ListState[brand]
	var mu sync.Mutex
	lc := NewListController(context.Background(), rec.fetch,
		WithLimit[brand](25),
		OnChange(func(s ListState[brand]) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		}),
	)

	lc.Reload()

	state := lc.State()
	assert.Empty(t, state.Items)
	assert.Error(t, state.Err)
	assert.Equal(t, 25, rec.calls()[0].Limit)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 2)
	assert.True(t, states[0].Loading)
	assert.False(t, states[1].Loading)
}
