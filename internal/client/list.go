package client

import (
	"context"
	"sync"
	"time"

	"vitrine/internal/domain/crud"
	"vitrine/internal/params"
)

const DefaultDebounce = 500 * time.Millisecond

// Fetcher loads one page.
type Fetcher[T any] func(ctx context.Context, q Query) (*crud.Page[T], error)

// ListState is a snapshot of a list view.
type ListState[T any] struct {
	Query   Query
	Items   []T
	Meta    params.Pagination
	Loading bool
	Err     error
}

// ListController owns pagination and search for one list view. Search input
// is debounced; a settled search that differs from the current one resets
// the page to 1. Every change is a fresh fetch, nothing is cached.
type ListController[T any] struct {
	ctx      context.Context
	fetch    Fetcher[T]
	debounce time.Duration
	onChange func(ListState[T])

	mu    sync.Mutex
	state ListState[T]
	timer *time.Timer
	seq   uint64
}

type ListOption[T any] func(*ListController[T])

func WithDebounce[T any](d time.Duration) ListOption[T] {
	return func(c *ListController[T]) { c.debounce = d }
}

func WithLimit[T any](limit int) ListOption[T] {
	return func(c *ListController[T]) { c.state.Query.Limit = limit }
}

// OnChange is called after every state transition.
func OnChange[T any](fn func(ListState[T])) ListOption[T] {
	return func(c *ListController[T]) { c.onChange = fn }
}

func NewListController[T any](ctx context.Context, fetch Fetcher[T], opts ...ListOption[T]) *ListController[T] {
	c := &ListController[T]{
		ctx:      ctx,
		fetch:    fetch,
		debounce: DefaultDebounce,
		onChange: func(ListState[T]) {},
		state: ListState[T]{
			Query: Query{Page: 1, Limit: params.DefaultLimit},
			Items: []T{},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResourceFetcher adapts the remote accessor for an admin resource.
func ResourceFetcher[T any](c *Client, entity string) Fetcher[T] {
	return func(ctx context.Context, q Query) (*crud.Page[T], error) {
		return FetchList[T](ctx, c, entity, q)
	}
}

func (c *ListController[T]) State() ListState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Reload refetches the current page.
func (c *ListController[T]) Reload() {
	c.mu.Lock()
	q := c.state.Query
	c.mu.Unlock()
	c.load(q)
}

func (c *ListController[T]) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.state.Query.Page = page
	q := c.state.Query
	c.mu.Unlock()
	c.load(q)
}

func (c *ListController[T]) SetLimit(limit int) {
	c.mu.Lock()
	c.state.Query.Limit = limit
	c.state.Query.Page = 1
	q := c.state.Query
	c.mu.Unlock()
	c.load(q)
}

// SetSearch records raw input; the fetch happens once input settles.
func (c *ListController[T]) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		if term != c.state.Query.Search {
			c.state.Query.Search = term
			c.state.Query.Page = 1
		}
		q := c.state.Query
		c.mu.Unlock()
		c.load(q)
	})
}

// Close cancels a pending debounced search.
func (c *ListController[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *ListController[T]) load(q Query) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state.Loading = true
	c.state.Err = nil
	loading := c.snapshot()
	c.mu.Unlock()
	c.onChange(loading)

	page, err := c.fetch(c.ctx, q)

	c.mu.Lock()
	if seq != c.seq {
		// a newer request superseded this one
		c.mu.Unlock()
		return
	}
	c.state.Loading = false
	if err != nil {
		page = EmptyPage[T](q)
		c.state.Err = err
	}
	c.state.Items = page.Data
	c.state.Meta = page.Meta
	done := c.snapshot()
	c.mu.Unlock()
	c.onChange(done)
}

func (c *ListController[T]) snapshot() ListState[T] {
	s := c.state
	s.Items = append([]T(nil), c.state.Items...)
	return s
}
