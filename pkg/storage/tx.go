package storage

import (
	"context"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/shopspring/decimal"
)

// CatalogTx is the transactional view of the book catalog.
type CatalogTx interface {
	// GetBook reads a book as part of the transaction snapshot.
	GetBook(ctx context.Context, bookID string) (*models.Book, error)

	// SaveBookCopies sets the copies of a book previously read with GetBook.
	// The write only commits if the book was not changed since it was read.
	SaveBookCopies(ctx context.Context, book *models.Book, copies int, now time.Time) error
}

// HoldingTx is the transactional view of user holdings.
type HoldingTx interface {
	// GetHoldingSummary reads the user's active borrows and purchases.
	GetHoldingSummary(ctx context.Context, userID string) (*models.HoldingSummary, error)

	// CreateHolding inserts a holding and records it in the summary read with GetHoldingSummary.
	CreateHolding(ctx context.Context, summary *models.HoldingSummary, holding *models.Holding) error

	// MarkHoldingReturned transitions an active borrowed holding to RETURNED.
	MarkHoldingReturned(ctx context.Context, summary *models.HoldingSummary, holdingID, bookID string, now time.Time) error
}

// ActionTx appends to the action log.
type ActionTx interface {
	AppendAction(ctx context.Context, action *models.Action) error
}

// WalletTx is the transactional view of wallets and their movements.
type WalletTx interface {
	GetWallet(ctx context.Context, walletID string) (*models.Wallet, error)

	// SaveWalletBalance writes the new balance and milestone flag of a wallet previously read with GetWallet.
	SaveWalletBalance(ctx context.Context, wallet *models.Wallet, balance decimal.Decimal, milestoneNotified bool, now time.Time) error

	AppendMovement(ctx context.Context, movement *models.Movement) error
}

// RestockTx is the transactional view of the restock work queue.
type RestockTx interface {
	CreateRestock(ctx context.Context, restock *models.Restock) error
	GetRestock(ctx context.Context, restockID string) (*models.Restock, error)
	CompleteRestock(ctx context.Context, restock *models.Restock, now time.Time) error
}

// Tx is one atomic unit of work. Reads do not observe the transaction's own pending writes,
// so callers read everything they need before writing.
type Tx interface {
	CatalogTx
	HoldingTx
	ActionTx
	WalletTx
	RestockTx
}

// Runner executes fn inside a transaction. If fn returns an error nothing is written.
// If the commit loses a race with a concurrent writer, InTx returns ErrConflict.
type Runner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
