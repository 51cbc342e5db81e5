// Package postgres implements the storage interfaces on PostgreSQL through pgx.
//
// Transactions are pessimistic: GetBook, GetWallet and GetRestock lock their row with
// SELECT ... FOR UPDATE and GetHoldingSummary takes a transaction scoped advisory lock on
// the user, so concurrent check-then-write sequences on the same book or user serialize.
// A lock wait that exceeds LockTimeout, a serialization failure or a deadlock surfaces as
// storage.ErrConflict.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

const (
	defaultMaxConns          = int32(8)
	defaultMinConns          = int32(2)
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultHealthCheckPeriod = time.Minute
	defaultConnectTimeout    = 5 * time.Second

	// DefaultLockTimeout bounds how long a transaction waits for a row or advisory lock.
	DefaultLockTimeout = 5 * time.Second
)

// Postgres error codes mapped to storage errors.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Store implements the Storage interface on a pgx connection pool.
type Store struct {
	pool        *pgxpool.Pool
	logger      *slog.Logger
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger logs every executed statement at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = timeout
	}
}

var _ storage.Storage = (*Store)(nil)

// New creates a Store on an existing pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PoolConfig parses dsn and applies the pool tuning used by the service.
func PoolConfig(dsn string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	cfg.MinConns = defaultMinConns
	cfg.MaxConnLifetime = defaultMaxConnLifetime
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	cfg.HealthCheckPeriod = defaultHealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	return cfg, nil
}

// Open connects to dsn and returns a Store that owns the pool.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := PoolConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return New(pool, opts...), nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Store) debug(sql string, args []any) {
	if s.logger != nil {
		s.logger.Debug("executed sql", "query", sql, "args", len(args))
	}
}

// mapError translates lock and constraint failures into storage errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicate, pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.Message)
		}
	}
	return err
}

// numeric is a decimal column read as text so no precision is lost on the way.
type numeric struct{ s string }

func (n *numeric) decimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numeric %q: %w", n.s, err)
	}
	return d, nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const bookColumns = `id, title, authors, genres, sell_price::text, borrow_price::text, stock_price::text, copies, version, created_at, updated_at`

func scanBook(row rowScanner) (*models.Book, error) {
	var (
		b                   models.Book
		sell, borrow, stock numeric
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Authors, &b.Genres, &sell.s, &borrow.s, &stock.s, &b.Copies, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if b.SellPrice, err = sell.decimal(); err != nil {
		return nil, err
	}
	if b.BorrowPrice, err = borrow.decimal(); err != nil {
		return nil, err
	}
	if b.StockPrice, err = stock.decimal(); err != nil {
		return nil, err
	}
	return &b, nil
}

const walletColumns = `id, user_id, balance::text, milestone_notified, version, created_at, updated_at`

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var (
		w       models.Wallet
		balance numeric
	)
	if err := row.Scan(&w.ID, &w.UserID, &balance.s, &w.MilestoneNotified, &w.Version, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if w.Balance, err = balance.decimal(); err != nil {
		return nil, err
	}
	return &w, nil
}

const holdingColumns = `id, user_id, book_id, book_title, book_authors, type, status, created_at, updated_at`

func scanHolding(row rowScanner) (models.Holding, error) {
	var h models.Holding
	var typ, status string
	err := row.Scan(&h.ID, &h.UserID, &h.BookID, &h.Book.Title, &h.Book.Authors, &typ, &status, &h.CreatedAt, &h.UpdatedAt)
	h.Book.ID = h.BookID
	h.Type = models.HoldingType(typ)
	h.Status = models.HoldingStatus(status)
	return h, err
}

const actionColumns = `id, book_id, user_id, action_type, quantity, created_at`

func scanAction(row rowScanner) (models.Action, error) {
	var a models.Action
	var typ string
	err := row.Scan(&a.ID, &a.BookID, &a.UserID, &typ, &a.Quantity, &a.CreatedAt)
	a.Type = models.ActionType(typ)
	return a, err
}

const movementColumns = `id, wallet_id, amount::text, type, description, balance_after::text, created_at`

func scanMovement(row rowScanner) (models.Movement, error) {
	var (
		m             models.Movement
		typ           string
		amount, after numeric
	)
	if err := row.Scan(&m.ID, &m.WalletID, &amount.s, &typ, &m.Description, &after.s, &m.CreatedAt); err != nil {
		return m, err
	}
	m.Type = models.MovementType(typ)
	var err error
	if m.Amount, err = amount.decimal(); err != nil {
		return m, err
	}
	m.BalanceAfter, err = after.decimal()
	return m, err
}

const restockColumns = `id, book_id, quantity, due_at, status, created_at, completed_at`

func scanRestock(row rowScanner) (*models.Restock, error) {
	var r models.Restock
	var status string
	if err := row.Scan(&r.ID, &r.BookID, &r.Quantity, &r.DueAt, &status, &r.CreatedAt, &r.CompletedAt); err != nil {
		return nil, err
	}
	r.Status = models.RestockStatus(status)
	return &r, nil
}
