package memory

import (
	"context"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/shopspring/decimal"
)

// txn buffers writes until InTx commits. The store lock is held for its whole life.
type txn struct {
	s   *Store
	ops []func()
}

var _ storage.Tx = (*txn)(nil)

func (t *txn) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	b, ok := t.s.books[bookID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneBook(b), nil
}

func (t *txn) SaveBookCopies(ctx context.Context, book *models.Book, copies int, now time.Time) error {
	id := book.ID
	t.ops = append(t.ops, func() {
		b := t.s.books[id]
		b.Copies = copies
		b.Version++
		b.UpdatedAt = now
	})
	return nil
}

func (t *txn) GetHoldingSummary(ctx context.Context, userID string) (*models.HoldingSummary, error) {
	summary := models.NewHoldingSummary(userID)
	for _, h := range t.s.holdings {
		if h.UserID != userID {
			continue
		}
		switch h.Type {
		case models.BORROWED:
			if h.Status == models.ACTIVE {
				summary.ActiveBorrows[h.BookID] = h.ID
			}
		case models.BOUGHT:
			summary.Bought[h.BookID]++
		}
	}
	return summary, nil
}

func (t *txn) CreateHolding(ctx context.Context, summary *models.HoldingSummary, holding *models.Holding) error {
	h := *holding
	t.ops = append(t.ops, func() {
		t.s.holdings = append(t.s.holdings, &h)
		t.s.holdingByID[h.ID] = &h
	})
	recordHolding(summary, holding)
	return nil
}

func (t *txn) MarkHoldingReturned(ctx context.Context, summary *models.HoldingSummary, holdingID, bookID string, now time.Time) error {
	if _, ok := t.s.holdingByID[holdingID]; !ok {
		return storage.ErrNotFound
	}
	t.ops = append(t.ops, func() {
		h := t.s.holdingByID[holdingID]
		h.Status = models.RETURNED
		h.UpdatedAt = now
	})
	delete(summary.ActiveBorrows, bookID)
	return nil
}

func (t *txn) AppendAction(ctx context.Context, action *models.Action) error {
	a := *action
	t.ops = append(t.ops, func() {
		t.s.actions = append(t.s.actions, a)
	})
	return nil
}

func (t *txn) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	w, ok := t.s.wallets[walletID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (t *txn) SaveWalletBalance(ctx context.Context, wallet *models.Wallet, balance decimal.Decimal, milestoneNotified bool, now time.Time) error {
	id := wallet.ID
	t.ops = append(t.ops, func() {
		w := t.s.wallets[id]
		w.Balance = balance
		w.MilestoneNotified = milestoneNotified
		w.Version++
		w.UpdatedAt = now
	})
	return nil
}

func (t *txn) AppendMovement(ctx context.Context, movement *models.Movement) error {
	m := *movement
	t.ops = append(t.ops, func() {
		t.s.movements = append(t.s.movements, m)
	})
	return nil
}

func (t *txn) CreateRestock(ctx context.Context, restock *models.Restock) error {
	r := *restock
	t.ops = append(t.ops, func() {
		t.s.restocks[r.ID] = &r
	})
	return nil
}

func (t *txn) GetRestock(ctx context.Context, restockID string) (*models.Restock, error) {
	r, ok := t.s.restocks[restockID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *txn) CompleteRestock(ctx context.Context, restock *models.Restock, now time.Time) error {
	id := restock.ID
	t.ops = append(t.ops, func() {
		r := t.s.restocks[id]
		r.Status = models.COMPLETED
		r.CompletedAt = &now
	})
	return nil
}

// recordHolding keeps a summary in step with a newly created holding.
func recordHolding(summary *models.HoldingSummary, h *models.Holding) {
	switch h.Type {
	case models.BORROWED:
		summary.ActiveBorrows[h.BookID] = h.ID
	case models.BOUGHT:
		summary.Bought[h.BookID]++
	}
}
