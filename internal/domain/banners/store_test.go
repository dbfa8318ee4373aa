package banners

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/db/dbtest"
)

func TestListActiveAndDelete(t *testing.T) {
	gdb := dbtest.New(t)
	require.NoError(t, Migrate(gdb))
	store := NewRepository(gdb)
	ctx := context.Background()

	desktop := "banners/d.jpg"
	mobile := "banners/m.jpg"
	live := &Banner{Title: "Black Friday", IsActive: true, ImageDesktop: &desktop, ImageMobile: &mobile}
	require.NoError(t, store.Banners().Create(ctx, live))
	require.NoError(t, store.Banners().Create(ctx, &Banner{Title: "Rascunho"}))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Black Friday", active[0].Title)

	deleted, err := store.Delete(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{desktop, mobile}, deleted.Images())

	_, err = store.Delete(ctx, live.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
