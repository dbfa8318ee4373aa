// Package cache is a short-lived, in-process cache for public reads. Entries
// are grouped under tags; invalidating a tag drops every entry stored under it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

const (
	TagBanners    = "banners"
	TagCategories = "categories"
	TagProducts   = "products"
	TagSettings   = "settings"
)

// Tagged stores byte payloads keyed by tags + key. Tag invalidation bumps a
// generation counter, so stale entries become unreachable and age out.
type Tagged struct {
	store *bigcache.BigCache

	mu          sync.RWMutex
	generations map[string]uint64
}

func New(ctx context.Context, ttl time.Duration) (*Tagged, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl
	cfg.Verbose = false
	cfg.HardMaxCacheSize = 64 // MB

	store, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return &Tagged{store: store, generations: make(map[string]uint64)}, nil
}

// Key is a cache key resolved against the tag generations current when it
// was built. A payload stored under it after one of its tags is invalidated
// is unreachable.
type Key string

// Key resolves key under tags. Resolve before loading the payload and store
// under the same Key.
func (c *Tagged) Key(key string, tags ...string) Key {
	return Key(c.fullKey(key, tags))
}

func (c *Tagged) Lookup(k Key) ([]byte, bool) {
	data, err := c.store.Get(string(k))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Tagged) Store(k Key, data []byte) error {
	return c.store.Set(string(k), data)
}

// Get returns the payload cached for key under tags.
func (c *Tagged) Get(key string, tags ...string) ([]byte, bool) {
	return c.Lookup(c.Key(key, tags...))
}

// Invalidate drops every entry cached under any of tags.
func (c *Tagged) Invalidate(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tags {
		c.generations[t]++
	}
}

func (c *Tagged) Close() error {
	return c.store.Close()
}

// Reset empties the cache.
func (c *Tagged) Reset() error {
	if err := c.store.Reset(); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (c *Tagged) fullKey(key string, tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	for _, t := range sorted {
		fmt.Fprintf(&b, "%s@%d|", t, c.generations[t])
	}
	b.WriteString(key)
	return b.String()
}
