// Package mapping converts between domain models and the JSON shapes of the HTTP API.
// Money leaves the API as strings with two decimals and enters it as decimal strings.
package mapping

import (
	"time"

	"github.com/chris/library-ledger/pkg/engine"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/wallet"
	"github.com/shopspring/decimal"
)

// Book is the API representation of a catalog entry.
type Book struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Genres      []string `json:"genres"`
	SellPrice   string   `json:"sell_price"`
	BorrowPrice string   `json:"borrow_price"`
	StockPrice  string   `json:"stock_price"`
	Copies      int      `json:"copies"`
}

// Holding is the API representation of a borrow or a purchase.
type Holding struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Book      models.BookSummary `json:"book"`
	Type      string             `json:"type"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Action is the API representation of an action log entry.
type Action struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"action_type"`
	Quantity  *int      `json:"quantity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Restock is the API representation of a scheduled restock.
type Restock struct {
	ID       string    `json:"id"`
	Quantity int       `json:"quantity"`
	DueAt    time.Time `json:"due_at"`
	Status   string    `json:"status"`
}

// Receipt is returned by borrow, return and buy.
type Receipt struct {
	Book    Book     `json:"book"`
	Holding *Holding `json:"holding,omitempty"`
	Action  *Action  `json:"action,omitempty"`
	Restock *Restock `json:"restock,omitempty"`
}

// Wallet is the API representation of a wallet.
type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Movement is the API representation of a wallet movement.
type Movement struct {
	ID           string    `json:"id"`
	WalletID     string    `json:"wallet_id"`
	Amount       string    `json:"amount"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	BalanceAfter string    `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// MovementResult is returned by a successful movement.
type MovementResult struct {
	Wallet   Wallet   `json:"wallet"`
	Movement Movement `json:"movement"`
}

// BuyRequest is the body of a purchase.
type BuyRequest struct {
	Quantity int `json:"quantity"`
}

// NewMovement is the body of a wallet movement.
type NewMovement struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" validate:"required,oneof=CREDIT DEBIT"`
	Description string          `json:"description" validate:"max=255"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func ToApiBook(b *models.Book) Book {
	return Book{
		ID:          b.ID,
		Title:       b.Title,
		Authors:     b.Authors,
		Genres:      b.Genres,
		SellPrice:   money(b.SellPrice),
		BorrowPrice: money(b.BorrowPrice),
		StockPrice:  money(b.StockPrice),
		Copies:      b.Copies,
	}
}

func ToApiBooks(books []models.Book) []Book {
	out := make([]Book, len(books))
	for i := range books {
		out[i] = ToApiBook(&books[i])
	}
	return out
}

func ToApiHolding(h *models.Holding) Holding {
	return Holding{
		ID:        h.ID,
		UserID:    h.UserID,
		Book:      h.Book,
		Type:      string(h.Type),
		Status:    string(h.Status),
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}

func ToApiHoldings(holdings []models.Holding) []Holding {
	out := make([]Holding, len(holdings))
	for i := range holdings {
		out[i] = ToApiHolding(&holdings[i])
	}
	return out
}

func ToApiAction(a *models.Action) Action {
	return Action{
		ID:        a.ID,
		BookID:    a.BookID,
		UserID:    a.UserID,
		Type:      string(a.Type),
		Quantity:  a.Quantity,
		CreatedAt: a.CreatedAt,
	}
}

func ToApiActions(actions []models.Action) []Action {
	out := make([]Action, len(actions))
	for i := range actions {
		out[i] = ToApiAction(&actions[i])
	}
	return out
}

// ToApiReceipt converts an engine receipt. Optional parts stay nil when absent.
func ToApiReceipt(r *engine.Receipt) Receipt {
	out := Receipt{Book: ToApiBook(r.Book)}
	if r.Holding != nil {
		h := ToApiHolding(r.Holding)
		out.Holding = &h
	}
	if r.Action != nil {
		a := ToApiAction(r.Action)
		out.Action = &a
	}
	if r.Restock != nil {
		out.Restock = &Restock{
			ID:       r.Restock.ID,
			Quantity: r.Restock.Quantity,
			DueAt:    r.Restock.DueAt,
			Status:   string(r.Restock.Status),
		}
	}
	return out
}

func ToApiWallet(w *models.Wallet) Wallet {
	return Wallet{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   money(w.Balance),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func ToApiMovement(m *models.Movement) Movement {
	return Movement{
		ID:           m.ID,
		WalletID:     m.WalletID,
		Amount:       money(m.Amount),
		Type:         string(m.Type),
		Description:  m.Description,
		BalanceAfter: money(m.BalanceAfter),
		CreatedAt:    m.CreatedAt,
	}
}

func ToApiMovements(movements []models.Movement) []Movement {
	out := make([]Movement, len(movements))
	for i := range movements {
		out[i] = ToApiMovement(&movements[i])
	}
	return out
}

func ToApiMovementResult(r *wallet.MovementResult) MovementResult {
	return MovementResult{
		Wallet:   ToApiWallet(r.Wallet),
		Movement: ToApiMovement(r.Movement),
	}
}
