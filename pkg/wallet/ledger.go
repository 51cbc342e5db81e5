// Package wallet maintains user wallet balances as an append-only ledger of movements.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris/library-ledger/pkg/apperrors"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notifier receives notifications of committed balance changes.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

// Policy configures the balance milestone notification.
type Policy struct {
	MilestoneThreshold decimal.Decimal
	ManagementEmail    string
}

// DefaultPolicy returns the milestone settings used unless configured otherwise.
func DefaultPolicy() Policy {
	return Policy{
		MilestoneThreshold: decimal.NewFromInt(2000),
		ManagementEmail:    "management@dummy-library.com",
	}
}

// MovementResult is the outcome of a successful AddMovement.
type MovementResult struct {
	Wallet   *models.Wallet   `json:"wallet"`
	Movement *models.Movement `json:"movement"`
}

// Ledger applies movements to wallets.
type Ledger struct {
	runner storage.Runner
	store  storage.WalletStore
	notify Notifier
	policy Policy
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the ledger's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a new Ledger.
func New(runner storage.Runner, store storage.WalletStore, notifier Notifier, policy Policy, opts ...Option) *Ledger {
	l := &Ledger{
		runner: runner,
		store:  store,
		notify: notifier,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateWallet opens the wallet of a user with a zero balance.
func (l *Ledger) CreateWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	if userID == "" {
		return nil, apperrors.Invalid("user id is required")
	}

	now := l.now()
	w := &models.Wallet{
		ID:        uuid.New().String(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := l.store.CreateWallet(ctx, w)
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, apperrors.ErrWalletExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet for user %s: %w", userID, err)
	}
	return w, nil
}

func (l *Ledger) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	w, err := l.store.GetWallet(ctx, walletID)
	return walletOrError(w, err)
}

// GetWalletForUser looks a wallet up by its owner.
func (l *Ledger) GetWalletForUser(ctx context.Context, userID string) (*models.Wallet, error) {
	w, err := l.store.GetWalletByUserID(ctx, userID)
	return walletOrError(w, err)
}

func (l *Ledger) GetBalance(ctx context.Context, walletID string) (decimal.Decimal, error) {
	w, err := l.GetWallet(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// AddMovement credits or debits a wallet. A debit that would make the balance
// negative fails with INSUFFICIENT_FUNDS and writes nothing.
func (l *Ledger) AddMovement(ctx context.Context, walletID string, amount decimal.Decimal, typ models.MovementType, description string) (*MovementResult, error) {
	if walletID == "" {
		return nil, apperrors.Invalid("wallet id is required")
	}
	if !amount.IsPositive() {
		return nil, apperrors.Invalid("amount must be greater than zero")
	}
	if !typ.Valid() {
		return nil, apperrors.Invalid("invalid movement type %q", typ)
	}

	var result *MovementResult
	var milestone *notify.Message
	err := l.runner.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		milestone = nil
		now := l.now()

		w, err := tx.GetWallet(ctx, walletID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.ErrWalletNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get wallet %s: %w", walletID, err)
		}

		var balance decimal.Decimal
		switch typ {
		case models.CREDIT:
			balance = w.Balance.Add(amount)
		case models.DEBIT:
			balance = w.Balance.Sub(amount)
		}
		if balance.IsNegative() {
			return apperrors.ErrInsufficientFunds
		}

		above := balance.GreaterThan(l.policy.MilestoneThreshold)
		if above && !w.MilestoneNotified {
			msg := notify.MilestoneReached(l.policy.ManagementEmail, w.UserID, balance)
			milestone = &msg
		}

		if err := tx.SaveWalletBalance(ctx, w, balance, above, now); err != nil {
			return fmt.Errorf("failed to update balance of wallet %s: %w", walletID, err)
		}
		if description == "" {
			description = "Movement by user " + w.UserID
		}
		m := &models.Movement{
			ID:           uuid.New().String(),
			WalletID:     w.ID,
			Amount:       amount,
			Type:         typ,
			Description:  description,
			BalanceAfter: balance,
			CreatedAt:    now,
		}
		if err := tx.AppendMovement(ctx, m); err != nil {
			return fmt.Errorf("failed to append movement to wallet %s: %w", walletID, err)
		}

		w.Balance = balance
		w.MilestoneNotified = above
		w.Version++
		w.UpdatedAt = now
		result = &MovementResult{Wallet: w, Movement: m}
		return nil
	})
	if err != nil {
		var appErr *apperrors.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, storage.ErrConflict), errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.Wrap(apperrors.CodeTransient, apperrors.ErrTransient.Message, err)
		default:
			return nil, fmt.Errorf("add movement: %w", err)
		}
	}

	if milestone != nil {
		l.notify.Notify(ctx, *milestone)
	}
	return result, nil
}

// ListMovements returns a wallet's movements, newest first.
func (l *Ledger) ListMovements(ctx context.Context, q storage.MovementQuery, page models.PageRequest) ([]models.Movement, models.Pagination, error) {
	if q.Type != nil && !q.Type.Valid() {
		return nil, models.Pagination{}, apperrors.Invalid("invalid movement type %q", *q.Type)
	}
	if _, err := l.GetWallet(ctx, q.WalletID); err != nil {
		return nil, models.Pagination{}, err
	}

	page = page.Normalize()
	items, total, err := l.store.ListMovements(ctx, q, page)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list movements of wallet %s: %w", q.WalletID, err)
	}
	return items, models.NewPagination(total, page), nil
}

func walletOrError(w *models.Wallet, err error) (*models.Wallet, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}
