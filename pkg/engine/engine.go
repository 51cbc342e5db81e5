// Package engine implements the inventory operations on books: borrowing, returning,
// buying and restocking. Every mutating operation runs as one store transaction and
// hands its side effects to a Dispatcher only after the transaction commits.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris/library-ledger/pkg/apperrors"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/storage"
)

// Policy holds the business limits enforced by the engine.
type Policy struct {
	BorrowLimit         int
	BuyLimit            int
	MaxBuyQuantity      int
	AllowRepeatPurchase bool
	LowStockThreshold   int
	RestockQuantity     int
	RestockDelay        time.Duration
	ManagementEmail     string
}

// DefaultPolicy returns the limits the library runs with unless configured otherwise.
func DefaultPolicy() Policy {
	return Policy{
		BorrowLimit:       3,
		BuyLimit:          10,
		MaxBuyQuantity:    2,
		LowStockThreshold: 1,
		RestockQuantity:   5,
		RestockDelay:      time.Hour,
		ManagementEmail:   "management@library.com",
	}
}

// crossesLowStock reports whether a stock change enters the low-stock zone.
func (p Policy) crossesLowStock(before, after int) bool {
	return before > p.LowStockThreshold && after <= p.LowStockThreshold
}

// Dispatcher receives the side effects of committed operations.
type Dispatcher interface {
	Notify(ctx context.Context, msg notify.Message)
	ScheduleRestock(ctx context.Context, task models.Restock)
}

// Receipt is the result of a successful mutating operation.
type Receipt struct {
	Book    *models.Book    `json:"book"`
	Holding *models.Holding `json:"holding,omitempty"`
	Action  *models.Action  `json:"action,omitempty"`
	Restock *models.Restock `json:"restock,omitempty"`
}

// Engine executes inventory operations against a store.
type Engine struct {
	runner   storage.Runner
	reader   storage.Reader
	dispatch Dispatcher
	policy   Policy
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a new Engine.
func New(runner storage.Runner, reader storage.Reader, dispatch Dispatcher, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		runner:   runner,
		reader:   reader,
		dispatch: dispatch,
		policy:   policy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the limits the engine enforces.
func (e *Engine) Policy() Policy {
	return e.policy
}

// effects collects what to dispatch once a transaction has committed.
type effects struct {
	messages []notify.Message
	restocks []models.Restock
}

func (e *Engine) flush(ctx context.Context, fx *effects) {
	for _, msg := range fx.messages {
		e.dispatch.Notify(ctx, msg)
	}
	for _, r := range fx.restocks {
		e.dispatch.ScheduleRestock(ctx, r)
	}
}

// translate maps store failures onto the error taxonomy. Business errors pass through.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, storage.ErrConflict), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.CodeTransient, apperrors.ErrTransient.Message, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func getBook(ctx context.Context, tx storage.CatalogTx, bookID string) (*models.Book, error) {
	book, err := tx.GetBook(ctx, bookID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", bookID, err)
	}
	return book, nil
}

// setCopies writes the new stock level and mirrors it on the in-memory book.
func setCopies(ctx context.Context, tx storage.CatalogTx, book *models.Book, copies int, now time.Time) error {
	if copies < 0 {
		return fmt.Errorf("refusing negative stock for book %s", book.ID)
	}
	if err := tx.SaveBookCopies(ctx, book, copies, now); err != nil {
		return fmt.Errorf("failed to update copies of book %s: %w", book.ID, err)
	}
	book.Copies = copies
	book.Version++
	book.UpdatedAt = now
	return nil
}

func requireIDs(bookID, userID string) error {
	if bookID == "" {
		return apperrors.Invalid("book id is required")
	}
	if userID == "" {
		return apperrors.Invalid("user id is required")
	}
	return nil
}
