// Package holdings tracks users' borrow and purchase relationships to books.
// A Tracker only lives inside a transaction supplied by its caller.
package holdings

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/google/uuid"
)

// Tracker maintains holding rows for one user within one transaction.
type Tracker struct {
	tx      storage.HoldingTx
	summary *models.HoldingSummary
}

// Load reads the user's holding summary through tx.
func Load(ctx context.Context, tx storage.HoldingTx, userID string) (*Tracker, error) {
	summary, err := tx.GetHoldingSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings of user %s: %w", userID, err)
	}
	return &Tracker{tx: tx, summary: summary}, nil
}

// ActiveBorrowCount is the number of ACTIVE BORROWED holdings of the user.
func (t *Tracker) ActiveBorrowCount() int {
	return t.summary.ActiveBorrowCount()
}

// IsBorrowing reports whether the user has an ACTIVE BORROWED holding for bookID.
func (t *Tracker) IsBorrowing(bookID string) bool {
	_, ok := t.summary.ActiveBorrow(bookID)
	return ok
}

// BoughtCount is the number of BOUGHT holdings of the user across all books.
func (t *Tracker) BoughtCount() int {
	return t.summary.BoughtCount()
}

// Owns reports whether the user has bought bookID before.
func (t *Tracker) Owns(bookID string) bool {
	return t.summary.HasBought(bookID)
}

// Borrow creates an ACTIVE BORROWED holding.
func (t *Tracker) Borrow(ctx context.Context, book *models.Book, now time.Time) (*models.Holding, error) {
	return t.create(ctx, book, models.BORROWED, now)
}

// Purchase creates an ACTIVE BOUGHT holding.
func (t *Tracker) Purchase(ctx context.Context, book *models.Book, now time.Time) (*models.Holding, error) {
	return t.create(ctx, book, models.BOUGHT, now)
}

// Return transitions the user's active borrowed holding for bookID to RETURNED.
// It returns the ID of the returned holding, or false if the user is not borrowing the book.
func (t *Tracker) Return(ctx context.Context, bookID string, now time.Time) (string, bool, error) {
	holdingID, ok := t.summary.ActiveBorrow(bookID)
	if !ok {
		return "", false, nil
	}
	if err := t.tx.MarkHoldingReturned(ctx, t.summary, holdingID, bookID, now); err != nil {
		return "", true, fmt.Errorf("failed to mark holding %s returned: %w", holdingID, err)
	}
	return holdingID, true, nil
}

func (t *Tracker) create(ctx context.Context, book *models.Book, typ models.HoldingType, now time.Time) (*models.Holding, error) {
	h := &models.Holding{
		ID:        uuid.New().String(),
		UserID:    t.summary.UserID,
		BookID:    book.ID,
		Book:      book.Summary(),
		Type:      typ,
		Status:    models.ACTIVE,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.tx.CreateHolding(ctx, t.summary, h); err != nil {
		return nil, fmt.Errorf("failed to create %s holding: %w", typ, err)
	}
	return h, nil
}
