package storage

import (
	"context"
	"time"

	"github.com/chris/library-ledger/pkg/models"
)

// BookFilter is a conjunction of optional predicates. Empty fields match everything.
type BookFilter struct {
	Title  string
	Author string
	Genre  string
}

// HoldingQuery selects a user's holdings.
type HoldingQuery struct {
	UserID string
	Type   *models.HoldingType
	Status *models.HoldingStatus
}

// ActionQuery selects entries of a book's action log.
type ActionQuery struct {
	BookID string
	Type   *models.ActionType
	UserID string
}

// MovementQuery selects a wallet's movements.
type MovementQuery struct {
	WalletID string
	Type     *models.MovementType
}

// CatalogReader defines the read side of the book catalog.
type CatalogReader interface {
	GetBook(ctx context.Context, bookID string) (*models.Book, error)

	// SearchBooks returns one page of matching books ordered by title, then ID, and the total match count.
	SearchBooks(ctx context.Context, filter BookFilter, page models.PageRequest) ([]models.Book, int, error)
}

// CatalogWriter seeds the catalog. Stock changes go through Tx only.
type CatalogWriter interface {
	CreateBook(ctx context.Context, book *models.Book) error
}

// HoldingReader lists holdings, newest first.
type HoldingReader interface {
	ListHoldings(ctx context.Context, q HoldingQuery, page models.PageRequest) ([]models.Holding, int, error)

	// ListActiveBorrowsBefore returns active borrowed holdings created before cutoff.
	ListActiveBorrowsBefore(ctx context.Context, cutoff time.Time) ([]models.Holding, error)
}

// ActionReader lists action log entries, newest first.
type ActionReader interface {
	ListActions(ctx context.Context, q ActionQuery, page models.PageRequest) ([]models.Action, int, error)
}

// WalletStore defines the non-transactional wallet operations.
type WalletStore interface {
	// CreateWallet creates the wallet of a user. Returns ErrDuplicate if the user already has one.
	CreateWallet(ctx context.Context, wallet *models.Wallet) error

	GetWallet(ctx context.Context, walletID string) (*models.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error)

	// ListMovements returns one page of movements, newest first.
	ListMovements(ctx context.Context, q MovementQuery, page models.PageRequest) ([]models.Movement, int, error)
}

// RestockReader finds restocks for reconciliation.
type RestockReader interface {
	// ListPendingRestocksDueBefore returns PENDING restocks with DueAt before cutoff.
	ListPendingRestocksDueBefore(ctx context.Context, cutoff time.Time) ([]models.Restock, error)
}

// Reader composes every read operation used by the engine and the boundary layer.
type Reader interface {
	CatalogReader
	HoldingReader
	ActionReader
	WalletStore
	RestockReader
}
