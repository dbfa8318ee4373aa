package filecleanup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vitrine/internal/db/dbtest"
)

func TestQueueLifecycle(t *testing.T) {
	gdb := dbtest.New(t)
	require.NoError(t, Migrate(gdb))
	store := NewRepository(gdb)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, "products/a.jpg", "", "banners/b.jpg"))

	due, err := store.Due(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, due, 2)

	require.NoError(t, store.Done(ctx, due[0].ID))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Failed(ctx, due[1].ID, errors.New("storage offline")))
	}

	due, err = store.Due(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, due)

	var left PendingDeletion
	require.NoError(t, gdb.First(&left).Error)
	assert.Equal(t, 3, left.Attempts)
	assert.Equal(t, "storage offline", left.LastError)
}

func TestEnqueueRollsBackWithTransaction(t *testing.T) {
	gdb := dbtest.New(t)
	require.NoError(t, Migrate(gdb))
	store := NewRepository(gdb)
	ctx := context.Background()

	err := gdb.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, store.WithTx(tx).Enqueue(ctx, "products/x.jpg"))
		return errors.New("abort")
	})
	require.Error(t, err)

	due, err := store.Due(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, due)
}
