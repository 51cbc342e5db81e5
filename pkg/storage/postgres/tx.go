package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type txn struct {
	s  *Store
	tx pgx.Tx
}

var _ storage.Tx = (*txn)(nil)

// InTx runs fn in a READ COMMITTED transaction and commits if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", mapError(err))
	}

	if err := fn(ctx, &txn{s: s, tx: tx}); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

func (t *txn) exec(ctx context.Context, query string, args ...any) (int64, error) {
	t.s.debug(query, args)
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// execOne runs a conditional update and reports ErrConflict when its condition matched no row.
func (t *txn) execOne(ctx context.Context, query string, args ...any) error {
	n, err := t.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrConflict
	}
	return nil
}

func (t *txn) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	b, err := scanBook(t.tx.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, bookID))
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

func (t *txn) SaveBookCopies(ctx context.Context, book *models.Book, copies int, now time.Time) error {
	const q = `
		UPDATE books
		SET copies = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4`
	return t.execOne(ctx, q, book.ID, copies, now, book.Version)
}

func (t *txn) GetHoldingSummary(ctx context.Context, userID string) (*models.HoldingSummary, error) {
	if _, err := t.exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return nil, fmt.Errorf("failed to lock user %s: %w", userID, err)
	}

	const q = `
		SELECT id, book_id, type
		FROM holdings
		WHERE user_id = $1
		AND (type = 'BOUGHT' OR status = 'ACTIVE')`
	rows, err := t.tx.Query(ctx, q, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	summary := models.NewHoldingSummary(userID)
	for rows.Next() {
		var id, bookID, typ string
		if err := rows.Scan(&id, &bookID, &typ); err != nil {
			return nil, err
		}
		switch models.HoldingType(typ) {
		case models.BORROWED:
			summary.ActiveBorrows[bookID] = id
		case models.BOUGHT:
			summary.Bought[bookID]++
		}
	}
	return summary, rows.Err()
}

func (t *txn) CreateHolding(ctx context.Context, summary *models.HoldingSummary, h *models.Holding) error {
	const q = `
		INSERT INTO holdings (id, user_id, book_id, book_title, book_authors, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := t.exec(ctx, q, h.ID, h.UserID, h.BookID, h.Book.Title, h.Book.Authors, string(h.Type), string(h.Status), h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return err
	}
	switch h.Type {
	case models.BORROWED:
		summary.ActiveBorrows[h.BookID] = h.ID
	case models.BOUGHT:
		summary.Bought[h.BookID]++
	}
	return nil
}

func (t *txn) MarkHoldingReturned(ctx context.Context, summary *models.HoldingSummary, holdingID, bookID string, now time.Time) error {
	const q = `
		UPDATE holdings
		SET status = 'RETURNED', updated_at = $3
		WHERE id = $1 AND user_id = $2 AND status = 'ACTIVE'`
	if err := t.execOne(ctx, q, holdingID, summary.UserID, now); err != nil {
		return err
	}
	delete(summary.ActiveBorrows, bookID)
	return nil
}

func (t *txn) AppendAction(ctx context.Context, a *models.Action) error {
	const q = `
		INSERT INTO actions (id, book_id, user_id, action_type, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := t.exec(ctx, q, a.ID, a.BookID, a.UserID, string(a.Type), a.Quantity, a.CreatedAt)
	return err
}

func (t *txn) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	w, err := scanWallet(t.tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, walletID))
	if err != nil {
		return nil, mapError(err)
	}
	return w, nil
}

func (t *txn) SaveWalletBalance(ctx context.Context, wallet *models.Wallet, balance decimal.Decimal, milestoneNotified bool, now time.Time) error {
	const q = `
		UPDATE wallets
		SET balance = $2::numeric, milestone_notified = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $5`
	return t.execOne(ctx, q, wallet.ID, balance.String(), milestoneNotified, now, wallet.Version)
}

func (t *txn) AppendMovement(ctx context.Context, m *models.Movement) error {
	const q = `
		INSERT INTO movements (id, wallet_id, amount, type, description, balance_after, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6::numeric, $7)`
	_, err := t.exec(ctx, q, m.ID, m.WalletID, m.Amount.String(), string(m.Type), m.Description, m.BalanceAfter.String(), m.CreatedAt)
	return err
}

func (t *txn) CreateRestock(ctx context.Context, r *models.Restock) error {
	const q = `
		INSERT INTO restocks (id, book_id, quantity, due_at, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := t.exec(ctx, q, r.ID, r.BookID, r.Quantity, r.DueAt, string(r.Status), r.CreatedAt, r.CompletedAt)
	return err
}

func (t *txn) GetRestock(ctx context.Context, restockID string) (*models.Restock, error) {
	r, err := scanRestock(t.tx.QueryRow(ctx, `SELECT `+restockColumns+` FROM restocks WHERE id = $1 FOR UPDATE`, restockID))
	if err != nil {
		return nil, mapError(err)
	}
	return r, nil
}

func (t *txn) CompleteRestock(ctx context.Context, r *models.Restock, now time.Time) error {
	const q = `
		UPDATE restocks
		SET status = 'COMPLETED', completed_at = $2
		WHERE id = $1 AND status = 'PENDING'`
	return t.execOne(ctx, q, r.ID, now)
}
