package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemUserID is recorded as the actor of actions the library performs on its own, such as restocks.
const SystemUserID = "system"

// Book represents a catalog entry and its available stock.
type Book struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Authors     []string        `json:"authors"`
	Genres      []string        `json:"genres"`
	SellPrice   decimal.Decimal `json:"sell_price"`
	BorrowPrice decimal.Decimal `json:"borrow_price"`
	StockPrice  decimal.Decimal `json:"stock_price"`
	Copies      int             `json:"copies"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Summary returns the projection of the book joined onto holdings.
func (b *Book) Summary() BookSummary {
	return BookSummary{ID: b.ID, Title: b.Title, Authors: b.Authors}
}

// BookSummary is the subset of a book shown next to a holding.
type BookSummary struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
}

// Holding represents a user's borrow or purchase relationship to a book.
type Holding struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	BookID    string        `json:"book_id"`
	Book      BookSummary   `json:"book"`
	Type      HoldingType   `json:"type"`
	Status    HoldingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Action is an immutable audit record of an inventory-affecting action.
type Action struct {
	ID        string     `json:"id"`
	BookID    string     `json:"book_id"`
	UserID    string     `json:"user_id"`
	Type      ActionType `json:"action_type"`
	Quantity  *int       `json:"quantity,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Wallet represents a user's balance. There is exactly one wallet per user.
type Wallet struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Balance           decimal.Decimal `json:"balance"`
	MilestoneNotified bool            `json:"-"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Movement is an immutable credit or debit applied to a wallet.
type Movement struct {
	ID           string          `json:"id"`
	WalletID     string          `json:"wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Type         MovementType    `json:"type"`
	Description  string          `json:"description"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Restock is a durable work item that adds copies to a book once DueAt has passed.
type Restock struct {
	ID          string        `json:"id"`
	BookID      string        `json:"book_id"`
	Quantity    int           `json:"quantity"`
	DueAt       time.Time     `json:"due_at"`
	Status      RestockStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}
