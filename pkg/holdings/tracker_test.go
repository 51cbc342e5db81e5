package holdings

import (
	"context"
	"testing"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/chris/library-ledger/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	dune := &models.Book{ID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"}}
	emma := &models.Book{ID: "b2", Title: "Emma", Authors: []string{"Jane Austen"}}

	t.Run("Borrow And Purchase Update Counts", func(t *testing.T) {
		store := memory.New()

		err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			tr, err := Load(ctx, tx, "u1")
			require.NoError(t, err)
			assert.Zero(t, tr.ActiveBorrowCount())

			h, err := tr.Borrow(ctx, dune, now)
			require.NoError(t, err)
			assert.Equal(t, models.BORROWED, h.Type)
			assert.Equal(t, models.ACTIVE, h.Status)
			assert.Equal(t, "Dune", h.Book.Title)

			_, err = tr.Purchase(ctx, emma, now)
			require.NoError(t, err)

			assert.Equal(t, 1, tr.ActiveBorrowCount())
			assert.True(t, tr.IsBorrowing("b1"))
			assert.False(t, tr.IsBorrowing("b2"))
			assert.Equal(t, 1, tr.BoughtCount())
			assert.True(t, tr.Owns("b2"))
			return nil
		})
		require.NoError(t, err)

		err = store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			tr, err := Load(ctx, tx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 1, tr.ActiveBorrowCount())
			assert.Equal(t, 1, tr.BoughtCount())
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Return", func(t *testing.T) {
		store := memory.New()
		var borrowed *models.Holding

		require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			tr, _ := Load(ctx, tx, "u1")
			var err error
			borrowed, err = tr.Borrow(ctx, dune, now)
			return err
		}))

		require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			tr, _ := Load(ctx, tx, "u1")
			id, ok, err := tr.Return(ctx, "b1", now)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, borrowed.ID, id)
			assert.False(t, tr.IsBorrowing("b1"))
			return nil
		}))

		require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			tr, _ := Load(ctx, tx, "u1")
			_, ok, err := tr.Return(ctx, "b1", now)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		}))
	})
}
