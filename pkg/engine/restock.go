package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/library-ledger/pkg/apperrors"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/storage"
)

// CompleteRestock adds the copies of a due restock to its book.
// Completing a restock twice is a no-op; the second call returns a receipt without an action.
func (e *Engine) CompleteRestock(ctx context.Context, restockID string) (*Receipt, error) {
	if restockID == "" {
		return nil, apperrors.Invalid("restock id is required")
	}

	var receipt *Receipt
	var fx effects
	err := e.runner.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		fx = effects{}
		now := e.now()

		restock, err := tx.GetRestock(ctx, restockID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.ErrRestockNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get restock %s: %w", restockID, err)
		}
		book, err := getBook(ctx, tx, restock.BookID)
		if err != nil {
			return err
		}

		switch restock.Status {
		case models.COMPLETED:
			receipt = &Receipt{Book: book, Restock: restock}
			return nil
		case models.PENDING:
		default:
			return fmt.Errorf("restock %s has unknown status %q", restock.ID, restock.Status)
		}

		if err := setCopies(ctx, tx, book, book.Copies+restock.Quantity, now); err != nil {
			return err
		}
		if err := tx.CompleteRestock(ctx, restock, now); err != nil {
			return fmt.Errorf("failed to complete restock %s: %w", restock.ID, err)
		}
		restock.Status = models.COMPLETED
		restock.CompletedAt = &now

		qty := restock.Quantity
		action, err := appendAction(ctx, tx, book.ID, models.SystemUserID, models.RESTOCK_COMPLETED, &qty, now)
		if err != nil {
			return err
		}
		receipt = &Receipt{Book: book, Action: action, Restock: restock}
		fx.messages = append(fx.messages, notify.Restocked(e.policy.ManagementEmail, book))
		return nil
	})
	if err != nil {
		return nil, translate("complete restock", err)
	}

	e.flush(ctx, &fx)
	return receipt, nil
}
