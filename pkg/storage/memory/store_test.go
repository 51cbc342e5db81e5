package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBook(t *testing.T, s *Store, id, title string, copies int) {
	t.Helper()
	require.NoError(t, s.CreateBook(context.Background(), &models.Book{
		ID:      id,
		Title:   title,
		Authors: []string{"Frank Herbert"},
		Genres:  []string{"sci-fi"},
		Copies:  copies,
	}))
}

func TestInTx(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Commit Applies Writes", func(t *testing.T) {
		s := New()
		seedBook(t, s, "b1", "Dune", 3)

		err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			b, err := tx.GetBook(ctx, "b1")
			if err != nil {
				return err
			}
			return tx.SaveBookCopies(ctx, b, b.Copies-1, now)
		})
		require.NoError(t, err)

		b, err := s.GetBook(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, 2, b.Copies)
		assert.Equal(t, int64(1), b.Version)
	})

	t.Run("Error Discards Writes", func(t *testing.T) {
		s := New()
		seedBook(t, s, "b1", "Dune", 3)

		boom := errors.New("boom")
		err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			b, _ := tx.GetBook(ctx, "b1")
			_ = tx.SaveBookCopies(ctx, b, 0, now)
			_ = tx.AppendAction(ctx, &models.Action{ID: "a1", BookID: "b1", Type: models.BORROW})
			return boom
		})
		assert.ErrorIs(t, err, boom)

		b, _ := s.GetBook(ctx, "b1")
		assert.Equal(t, 3, b.Copies)
		actions, total, _ := s.ListActions(ctx, storage.ActionQuery{BookID: "b1"}, models.PageRequest{Page: 1, Limit: 10})
		assert.Empty(t, actions)
		assert.Zero(t, total)
	})

	t.Run("Missing Book", func(t *testing.T) {
		s := New()
		err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.GetBook(ctx, "nope")
			return err
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestHoldingSummary(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		summary, _ := tx.GetHoldingSummary(ctx, "u1")
		_ = tx.CreateHolding(ctx, summary, &models.Holding{ID: "h1", UserID: "u1", BookID: "b1", Type: models.BORROWED, Status: models.ACTIVE, CreatedAt: now})
		_ = tx.CreateHolding(ctx, summary, &models.Holding{ID: "h2", UserID: "u1", BookID: "b2", Type: models.BOUGHT, Status: models.ACTIVE, CreatedAt: now})
		assert.Equal(t, 1, summary.ActiveBorrowCount())
		assert.Equal(t, 1, summary.BoughtCount())
		return nil
	})
	require.NoError(t, err)

	err = s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		summary, _ := tx.GetHoldingSummary(ctx, "u1")
		id, ok := summary.ActiveBorrow("b1")
		require.True(t, ok)
		assert.Equal(t, "h1", id)
		return tx.MarkHoldingReturned(ctx, summary, id, "b1", now)
	})
	require.NoError(t, err)

	returned := models.RETURNED
	holdings, total, err := s.ListHoldings(ctx, storage.HoldingQuery{UserID: "u1", Status: &returned}, models.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "h1", holdings[0].ID)
}

func TestSearchBooks(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedBook(t, s, "b2", "Dune Messiah", 1)
	seedBook(t, s, "b1", "Dune", 1)
	require.NoError(t, s.CreateBook(ctx, &models.Book{ID: "b3", Title: "Emma", Authors: []string{"Jane Austen"}, Genres: []string{"classic"}}))

	books, total, err := s.SearchBooks(ctx, storage.BookFilter{Title: "Dune"}, models.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Dune Messiah", books[1].Title)

	books, total, err = s.SearchBooks(ctx, storage.BookFilter{Author: "Jane Austen", Genre: "classic"}, models.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "b3", books[0].ID)

	books, total, err = s.SearchBooks(ctx, storage.BookFilter{Author: "Jane"}, models.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, books)

	books, total, err = s.SearchBooks(ctx, storage.BookFilter{}, models.PageRequest{Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, books)
}

func TestWallets(t *testing.T) {
	ctx := context.Background()
	s := New()

	w := &models.Wallet{ID: "w1", UserID: "u1", Balance: decimal.Zero}
	require.NoError(t, s.CreateWallet(ctx, w))
	assert.ErrorIs(t, s.CreateWallet(ctx, &models.Wallet{ID: "w2", UserID: "u1"}), storage.ErrDuplicate)

	got, err := s.GetWalletByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.ID)

	_, err = s.GetWallet(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListPendingRestocksDueBefore(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_ = tx.CreateRestock(ctx, &models.Restock{ID: "r1", BookID: "b1", Quantity: 5, DueAt: now.Add(-time.Minute), Status: models.PENDING})
		_ = tx.CreateRestock(ctx, &models.Restock{ID: "r2", BookID: "b1", Quantity: 5, DueAt: now.Add(time.Hour), Status: models.PENDING})
		return tx.CreateRestock(ctx, &models.Restock{ID: "r3", BookID: "b1", Quantity: 5, DueAt: now.Add(-time.Hour), Status: models.COMPLETED})
	})
	require.NoError(t, err)

	due, err := s.ListPendingRestocksDueBefore(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "r1", due[0].ID)
}
