package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/shopspring/decimal"
)

// timeLayout is fixed width so stored timestamps sort lexically in index range keys.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestamp stores a time as a fixed width UTC string.
type timestamp struct{ time.Time }

func (t timestamp) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: formatTime(t.Time)}, nil
}

func (t *timestamp) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("timestamp: expected string attribute, got %T", av)
	}
	parsed, err := time.Parse(timeLayout, s.Value)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}

// money stores a decimal as a number attribute without going through float64.
type money struct{ decimal.Decimal }

func (m money) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: m.String()}, nil
}

func (m *money) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("money: expected number attribute, got %T", av)
	}
	d, err := decimal.NewFromString(n.Value)
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	m.Decimal = d
	return nil
}

type bookRecord struct {
	ID          string    `dynamodbav:"id"`
	Title       string    `dynamodbav:"title"`
	Authors     []string  `dynamodbav:"authors"`
	Genres      []string  `dynamodbav:"genres"`
	SellPrice   money     `dynamodbav:"sell_price"`
	BorrowPrice money     `dynamodbav:"borrow_price"`
	StockPrice  money     `dynamodbav:"stock_price"`
	Copies      int       `dynamodbav:"copies"`
	Version     int64     `dynamodbav:"version"`
	CreatedAt   timestamp `dynamodbav:"created_at"`
	UpdatedAt   timestamp `dynamodbav:"updated_at"`
}

func newBookRecord(b *models.Book) bookRecord {
	return bookRecord{
		ID:          b.ID,
		Title:       b.Title,
		Authors:     b.Authors,
		Genres:      b.Genres,
		SellPrice:   money{b.SellPrice},
		BorrowPrice: money{b.BorrowPrice},
		StockPrice:  money{b.StockPrice},
		Copies:      b.Copies,
		Version:     b.Version,
		CreatedAt:   timestamp{b.CreatedAt},
		UpdatedAt:   timestamp{b.UpdatedAt},
	}
}

func (r bookRecord) model() models.Book {
	return models.Book{
		ID:          r.ID,
		Title:       r.Title,
		Authors:     r.Authors,
		Genres:      r.Genres,
		SellPrice:   r.SellPrice.Decimal,
		BorrowPrice: r.BorrowPrice.Decimal,
		StockPrice:  r.StockPrice.Decimal,
		Copies:      r.Copies,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

// memberRecord is the per-user item holding the user's holding summary and wallet link.
type memberRecord struct {
	UserID        string            `dynamodbav:"user_id"`
	ActiveBorrows map[string]string `dynamodbav:"active_borrows"`
	Bought        map[string]int    `dynamodbav:"bought"`
	WalletID      string            `dynamodbav:"wallet_id,omitempty"`
	Version       int64             `dynamodbav:"version"`
}

func (r memberRecord) summary(userID string) *models.HoldingSummary {
	s := models.NewHoldingSummary(userID)
	for k, v := range r.ActiveBorrows {
		s.ActiveBorrows[k] = v
	}
	for k, v := range r.Bought {
		s.Bought[k] = v
	}
	s.Version = r.Version
	return s
}

type bookSummaryRecord struct {
	ID      string   `dynamodbav:"id"`
	Title   string   `dynamodbav:"title"`
	Authors []string `dynamodbav:"authors"`
}

type holdingRecord struct {
	ID        string               `dynamodbav:"id"`
	UserID    string               `dynamodbav:"user_id"`
	BookID    string               `dynamodbav:"book_id"`
	Book      bookSummaryRecord    `dynamodbav:"book"`
	Type      models.HoldingType   `dynamodbav:"type"`
	Status    models.HoldingStatus `dynamodbav:"status"`
	CreatedAt timestamp            `dynamodbav:"created_at"`
	UpdatedAt timestamp            `dynamodbav:"updated_at"`
}

func newHoldingRecord(h *models.Holding) holdingRecord {
	return holdingRecord{
		ID:        h.ID,
		UserID:    h.UserID,
		BookID:    h.BookID,
		Book:      bookSummaryRecord{ID: h.Book.ID, Title: h.Book.Title, Authors: h.Book.Authors},
		Type:      h.Type,
		Status:    h.Status,
		CreatedAt: timestamp{h.CreatedAt},
		UpdatedAt: timestamp{h.UpdatedAt},
	}
}

func (r holdingRecord) model() models.Holding {
	return models.Holding{
		ID:        r.ID,
		UserID:    r.UserID,
		BookID:    r.BookID,
		Book:      models.BookSummary{ID: r.Book.ID, Title: r.Book.Title, Authors: r.Book.Authors},
		Type:      r.Type,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

type actionRecord struct {
	ID        string            `dynamodbav:"id"`
	BookID    string            `dynamodbav:"book_id"`
	UserID    string            `dynamodbav:"user_id"`
	Type      models.ActionType `dynamodbav:"action_type"`
	Quantity  *int              `dynamodbav:"quantity,omitempty"`
	CreatedAt timestamp         `dynamodbav:"created_at"`
}

func newActionRecord(a *models.Action) actionRecord {
	return actionRecord{
		ID:        a.ID,
		BookID:    a.BookID,
		UserID:    a.UserID,
		Type:      a.Type,
		Quantity:  a.Quantity,
		CreatedAt: timestamp{a.CreatedAt},
	}
}

func (r actionRecord) model() models.Action {
	return models.Action{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		Type:      r.Type,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt.Time,
	}
}

type walletRecord struct {
	ID                string    `dynamodbav:"id"`
	UserID            string    `dynamodbav:"user_id"`
	Balance           money     `dynamodbav:"balance"`
	MilestoneNotified bool      `dynamodbav:"milestone_notified"`
	Version           int64     `dynamodbav:"version"`
	CreatedAt         timestamp `dynamodbav:"created_at"`
	UpdatedAt         timestamp `dynamodbav:"updated_at"`
}

func newWalletRecord(w *models.Wallet) walletRecord {
	return walletRecord{
		ID:                w.ID,
		UserID:            w.UserID,
		Balance:           money{w.Balance},
		MilestoneNotified: w.MilestoneNotified,
		Version:           w.Version,
		CreatedAt:         timestamp{w.CreatedAt},
		UpdatedAt:         timestamp{w.UpdatedAt},
	}
}

func (r walletRecord) model() models.Wallet {
	return models.Wallet{
		ID:                r.ID,
		UserID:            r.UserID,
		Balance:           r.Balance.Decimal,
		MilestoneNotified: r.MilestoneNotified,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt.Time,
		UpdatedAt:         r.UpdatedAt.Time,
	}
}

type movementRecord struct {
	ID           string              `dynamodbav:"id"`
	WalletID     string              `dynamodbav:"wallet_id"`
	Amount       money               `dynamodbav:"amount"`
	Type         models.MovementType `dynamodbav:"type"`
	Description  string              `dynamodbav:"description"`
	BalanceAfter money               `dynamodbav:"balance_after"`
	CreatedAt    timestamp           `dynamodbav:"created_at"`
}

func newMovementRecord(m *models.Movement) movementRecord {
	return movementRecord{
		ID:           m.ID,
		WalletID:     m.WalletID,
		Amount:       money{m.Amount},
		Type:         m.Type,
		Description:  m.Description,
		BalanceAfter: money{m.BalanceAfter},
		CreatedAt:    timestamp{m.CreatedAt},
	}
}

func (r movementRecord) model() models.Movement {
	return models.Movement{
		ID:           r.ID,
		WalletID:     r.WalletID,
		Amount:       r.Amount.Decimal,
		Type:         r.Type,
		Description:  r.Description,
		BalanceAfter: r.BalanceAfter.Decimal,
		CreatedAt:    r.CreatedAt.Time,
	}
}

type restockRecord struct {
	ID          string               `dynamodbav:"id"`
	BookID      string               `dynamodbav:"book_id"`
	Quantity    int                  `dynamodbav:"quantity"`
	DueAt       timestamp            `dynamodbav:"due_at"`
	Status      models.RestockStatus `dynamodbav:"status"`
	CreatedAt   timestamp            `dynamodbav:"created_at"`
	CompletedAt *timestamp           `dynamodbav:"completed_at,omitempty"`
}

func newRestockRecord(r *models.Restock) restockRecord {
	rec := restockRecord{
		ID:        r.ID,
		BookID:    r.BookID,
		Quantity:  r.Quantity,
		DueAt:     timestamp{r.DueAt},
		Status:    r.Status,
		CreatedAt: timestamp{r.CreatedAt},
	}
	if r.CompletedAt != nil {
		rec.CompletedAt = &timestamp{*r.CompletedAt}
	}
	return rec
}

func (r restockRecord) model() models.Restock {
	out := models.Restock{
		ID:        r.ID,
		BookID:    r.BookID,
		Quantity:  r.Quantity,
		DueAt:     r.DueAt.Time,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.Time,
	}
	if r.CompletedAt != nil {
		t := r.CompletedAt.Time
		out.CompletedAt = &t
	}
	return out
}
