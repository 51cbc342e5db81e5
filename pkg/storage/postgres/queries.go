package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
)

var dialect = goqu.Dialect("postgres")

func booksQuery(f storage.BookFilter) *goqu.SelectDataset {
	ds := dialect.From("books")
	if f.Title != "" {
		ds = ds.Where(goqu.L("strpos(title, ?) > 0", f.Title))
	}
	if f.Author != "" {
		ds = ds.Where(goqu.L("? = ANY(authors)", f.Author))
	}
	if f.Genre != "" {
		ds = ds.Where(goqu.L("? = ANY(genres)", f.Genre))
	}
	return ds
}

func holdingsQuery(q storage.HoldingQuery) *goqu.SelectDataset {
	ds := dialect.From("holdings").Where(goqu.Ex{"user_id": q.UserID})
	if q.Type != nil {
		ds = ds.Where(goqu.Ex{"type": string(*q.Type)})
	}
	if q.Status != nil {
		ds = ds.Where(goqu.Ex{"status": string(*q.Status)})
	}
	return ds
}

func actionsQuery(q storage.ActionQuery) *goqu.SelectDataset {
	ds := dialect.From("actions").Where(goqu.Ex{"book_id": q.BookID})
	if q.Type != nil {
		ds = ds.Where(goqu.Ex{"action_type": string(*q.Type)})
	}
	if q.UserID != "" {
		ds = ds.Where(goqu.Ex{"user_id": q.UserID})
	}
	return ds
}

func movementsQuery(q storage.MovementQuery) *goqu.SelectDataset {
	ds := dialect.From("movements").Where(goqu.Ex{"wallet_id": q.WalletID})
	if q.Type != nil {
		ds = ds.Where(goqu.Ex{"type": string(*q.Type)})
	}
	return ds
}

var newestFirst = []exp.OrderedExpression{goqu.C("created_at").Desc(), goqu.C("id").Desc()}

// pageSQL selects columns for one page of ds.
func pageSQL(ds *goqu.SelectDataset, columns string, order []exp.OrderedExpression, page models.PageRequest) (string, []any, error) {
	return ds.Select(goqu.L(columns)).
		Order(order...).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset())).
		Prepared(true).
		ToSQL()
}

func countSQL(ds *goqu.SelectDataset) (string, []any, error) {
	return ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
}

// list runs the count and page queries of ds and scans every row of the page.
func list[T any](ctx context.Context, s *Store, ds *goqu.SelectDataset, columns string, order []exp.OrderedExpression, page models.PageRequest, scan func(rowScanner) (T, error)) ([]T, int, error) {
	countQuery, countArgs, err := countSQL(ds)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	s.debug(countQuery, countArgs)
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rows: %w", err)
	}

	query, args, err := pageSQL(ds, columns, order, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}
	out, err := collect(ctx, s, query, args, scan)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func collect[T any](ctx context.Context, s *Store, query string, args []any, scan func(rowScanner) (T, error)) ([]T, error) {
	s.debug(query, args)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database query execution failed: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

// CreateBook adds a book to the catalog.
func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	const q = `
		INSERT INTO books (id, title, authors, genres, sell_price, borrow_price, stock_price, copies, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10, $11)`
	_, err := s.pool.Exec(ctx, q, b.ID, b.Title, b.Authors, b.Genres,
		b.SellPrice.String(), b.BorrowPrice.String(), b.StockPrice.String(),
		b.Copies, b.Version, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", mapError(err))
	}
	return nil
}

// GetBook retrieves a book by its ID.
func (s *Store) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	b, err := scanBook(s.pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, bookID))
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

func (s *Store) SearchBooks(ctx context.Context, filter storage.BookFilter, page models.PageRequest) ([]models.Book, int, error) {
	order := []exp.OrderedExpression{goqu.C("title").Asc(), goqu.C("id").Asc()}
	return list(ctx, s, booksQuery(filter), bookColumns, order, page, func(row rowScanner) (models.Book, error) {
		b, err := scanBook(row)
		if err != nil {
			return models.Book{}, err
		}
		return *b, nil
	})
}

func (s *Store) ListHoldings(ctx context.Context, q storage.HoldingQuery, page models.PageRequest) ([]models.Holding, int, error) {
	return list(ctx, s, holdingsQuery(q), holdingColumns, newestFirst, page, scanHolding)
}

func (s *Store) ListActiveBorrowsBefore(ctx context.Context, cutoff time.Time) ([]models.Holding, error) {
	query, args, err := dialect.From("holdings").
		Select(goqu.L(holdingColumns)).
		Where(
			goqu.Ex{"type": string(models.BORROWED), "status": string(models.ACTIVE)},
			goqu.C("created_at").Lt(cutoff),
		).
		Order(goqu.C("created_at").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build overdue query: %w", err)
	}
	return collect(ctx, s, query, args, scanHolding)
}

func (s *Store) ListActions(ctx context.Context, q storage.ActionQuery, page models.PageRequest) ([]models.Action, int, error) {
	return list(ctx, s, actionsQuery(q), actionColumns, newestFirst, page, scanAction)
}

// CreateWallet inserts the wallet. The unique user_id constraint keeps one wallet per user.
func (s *Store) CreateWallet(ctx context.Context, w *models.Wallet) error {
	const q = `
		INSERT INTO wallets (id, user_id, balance, milestone_notified, version, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, q, w.ID, w.UserID, w.Balance.String(), w.MilestoneNotified, w.Version, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	w, err := scanWallet(s.pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID))
	if err != nil {
		return nil, mapError(err)
	}
	return w, nil
}

func (s *Store) GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	w, err := scanWallet(s.pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return w, nil
}

func (s *Store) ListMovements(ctx context.Context, q storage.MovementQuery, page models.PageRequest) ([]models.Movement, int, error) {
	return list(ctx, s, movementsQuery(q), movementColumns, newestFirst, page, scanMovement)
}

func (s *Store) ListPendingRestocksDueBefore(ctx context.Context, cutoff time.Time) ([]models.Restock, error) {
	query, args, err := dialect.From("restocks").
		Select(goqu.L(restockColumns)).
		Where(goqu.Ex{"status": string(models.PENDING)}, goqu.C("due_at").Lt(cutoff)).
		Order(goqu.C("due_at").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build pending restock query: %w", err)
	}
	return collect(ctx, s, query, args, func(row rowScanner) (models.Restock, error) {
		r, err := scanRestock(row)
		if err != nil {
			return models.Restock{}, err
		}
		return *r, nil
	})
}
