package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/library-ledger/pkg/apperrors"
	"github.com/chris/library-ledger/pkg/holdings"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/google/uuid"
)

// Borrow lends one copy of a book to a user.
// When the loan leaves the book at the low-stock threshold a delayed restock is recorded
// in the same transaction and management is notified.
func (e *Engine) Borrow(ctx context.Context, bookID, userID string) (*Receipt, error) {
	if err := requireIDs(bookID, userID); err != nil {
		return nil, err
	}

	var receipt *Receipt
	var fx effects
	err := e.runner.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		fx = effects{}
		now := e.now()

		book, err := getBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if book.Copies < 1 {
			return apperrors.ErrOutOfStock
		}
		tracker, err := holdings.Load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if tracker.ActiveBorrowCount() >= e.policy.BorrowLimit {
			return apperrors.New(apperrors.CodeLimitExceeded, fmt.Sprintf("borrow limit of %d books reached", e.policy.BorrowLimit))
		}
		if tracker.IsBorrowing(bookID) {
			return apperrors.ErrAlreadyHeld
		}

		old := book.Copies
		if err := setCopies(ctx, tx, book, old-1, now); err != nil {
			return err
		}
		holding, err := tracker.Borrow(ctx, book, now)
		if err != nil {
			return err
		}
		action, err := appendAction(ctx, tx, book.ID, userID, models.BORROW, nil, now)
		if err != nil {
			return err
		}
		receipt = &Receipt{Book: book, Holding: holding, Action: action}

		if !e.policy.crossesLowStock(old, book.Copies) {
			return nil
		}
		restock, err := e.recordRestock(ctx, tx, book, now)
		if err != nil {
			return err
		}
		receipt.Restock = restock
		fx.messages = append(fx.messages, notify.LowStockAlert(e.policy.ManagementEmail, book, book.Copies, e.policy.RestockDelay))
		fx.restocks = append(fx.restocks, *restock)
		return nil
	})
	if err != nil {
		return nil, translate("borrow", err)
	}

	e.flush(ctx, &fx)
	return receipt, nil
}

// Return takes back a copy the user is currently borrowing.
func (e *Engine) Return(ctx context.Context, bookID, userID string) (*Receipt, error) {
	if err := requireIDs(bookID, userID); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err := e.runner.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		now := e.now()

		book, err := getBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		tracker, err := holdings.Load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !tracker.IsBorrowing(bookID) {
			return apperrors.ErrNotBorrowed
		}

		if err := setCopies(ctx, tx, book, book.Copies+1, now); err != nil {
			return err
		}
		holdingID, _, err := tracker.Return(ctx, bookID, now)
		if err != nil {
			return err
		}
		action, err := appendAction(ctx, tx, book.ID, userID, models.RETURN, nil, now)
		if err != nil {
			return err
		}
		receipt = &Receipt{
			Book: book,
			Holding: &models.Holding{
				ID:        holdingID,
				UserID:    userID,
				BookID:    book.ID,
				Book:      book.Summary(),
				Type:      models.BORROWED,
				Status:    models.RETURNED,
				UpdatedAt: now,
			},
			Action: action,
		}
		return nil
	})
	if err != nil {
		return nil, translate("return", err)
	}
	return receipt, nil
}

// Buy sells quantity copies of a book to a user.
func (e *Engine) Buy(ctx context.Context, bookID, userID string, quantity int) (*Receipt, error) {
	if quantity < 1 || quantity > e.policy.MaxBuyQuantity {
		return nil, apperrors.New(apperrors.CodeInvalidQuantity,
			fmt.Sprintf("quantity must be between 1 and %d", e.policy.MaxBuyQuantity))
	}
	if err := requireIDs(bookID, userID); err != nil {
		return nil, err
	}

	var receipt *Receipt
	var fx effects
	err := e.runner.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		fx = effects{}
		now := e.now()

		book, err := getBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if book.Copies < quantity {
			return apperrors.New(apperrors.CodeInsufficientStock,
				fmt.Sprintf("only %d copies available", book.Copies))
		}
		tracker, err := holdings.Load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if tracker.BoughtCount() >= e.policy.BuyLimit {
			return apperrors.New(apperrors.CodeLimitExceeded, fmt.Sprintf("purchase limit of %d books reached", e.policy.BuyLimit))
		}
		if !e.policy.AllowRepeatPurchase && tracker.Owns(bookID) {
			return apperrors.ErrAlreadyOwned
		}

		old := book.Copies
		if err := setCopies(ctx, tx, book, old-quantity, now); err != nil {
			return err
		}
		holding, err := tracker.Purchase(ctx, book, now)
		if err != nil {
			return err
		}
		action, err := appendAction(ctx, tx, book.ID, userID, models.BUY, &quantity, now)
		if err != nil {
			return err
		}
		receipt = &Receipt{Book: book, Holding: holding, Action: action}

		if e.policy.crossesLowStock(old, book.Copies) {
			fx.messages = append(fx.messages, notify.LowStockAlert(e.policy.ManagementEmail, book, book.Copies, 0))
		}
		return nil
	})
	if err != nil {
		return nil, translate("buy", err)
	}

	e.flush(ctx, &fx)
	return receipt, nil
}

func (e *Engine) recordRestock(ctx context.Context, tx storage.Tx, book *models.Book, now time.Time) (*models.Restock, error) {
	restock := &models.Restock{
		ID:        uuid.New().String(),
		BookID:    book.ID,
		Quantity:  e.policy.RestockQuantity,
		DueAt:     now.Add(e.policy.RestockDelay),
		Status:    models.PENDING,
		CreatedAt: now,
	}
	if err := tx.CreateRestock(ctx, restock); err != nil {
		return nil, fmt.Errorf("failed to create restock for book %s: %w", book.ID, err)
	}
	qty := restock.Quantity
	if _, err := appendAction(ctx, tx, book.ID, models.SystemUserID, models.RESTOCK, &qty, now); err != nil {
		return nil, err
	}
	return restock, nil
}

func appendAction(ctx context.Context, tx storage.ActionTx, bookID, userID string, typ models.ActionType, quantity *int, now time.Time) (*models.Action, error) {
	action := &models.Action{
		ID:        uuid.New().String(),
		BookID:    bookID,
		UserID:    userID,
		Type:      typ,
		Quantity:  quantity,
		CreatedAt: now,
	}
	if err := tx.AppendAction(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to append %s action: %w", typ, err)
	}
	return action, nil
}
