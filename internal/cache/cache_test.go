package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Tagged {
	t.Helper()
	c, err := New(context.Background(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetSet(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.Get("/api/public/banner", TagBanners)
	assert.False(t, ok)

	require.NoError(t, c.Store(c.Key("/api/public/banner", TagBanners), []byte(`[]`)))
	data, ok := c.Get("/api/public/banner", TagBanners)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(data))
}

func TestInvalidateDropsOnlyTaggedEntries(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Store(c.Key("cats", TagCategories, TagProducts), []byte("c")))
	require.NoError(t, c.Store(c.Key("banners", TagBanners), []byte("b")))

	c.Invalidate(TagProducts)

	_, ok := c.Get("cats", TagCategories, TagProducts)
	assert.False(t, ok)
	_, ok = c.Get("banners", TagBanners)
	assert.True(t, ok)
}

func TestTagOrderDoesNotMatter(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Store(c.Key("k", TagProducts, TagCategories), []byte("v")))
	_, ok := c.Get("k", TagCategories, TagProducts)
	assert.True(t, ok)
}

func TestStoreAfterInvalidateIsUnreachable(t *testing.T) {
	c := newTestCache(t)

	// a reader resolves its key, then a writer invalidates before the
	// reader stores what it loaded
	k := c.Key("banners:active", TagBanners)
	_, ok := c.Lookup(k)
	require.False(t, ok)

	c.Invalidate(TagBanners)
	require.NoError(t, c.Store(k, []byte("old")))

	_, ok = c.Get("banners:active", TagBanners)
	assert.False(t, ok)

	fresh := c.Key("banners:active", TagBanners)
	require.NoError(t, c.Store(fresh, []byte("new")))
	data, ok := c.Get("banners:active", TagBanners)
	require.True(t, ok)
	assert.Equal(t, "new", string(data))
}
