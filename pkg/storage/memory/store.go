// Package memory implements the storage interfaces in process memory.
// Transactions are serialized by a single lock, which gives serializable isolation.
// It backs local development and tests; nothing survives a restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
)

// Store implements storage.Storage in memory.
type Store struct {
	mu sync.RWMutex

	books        map[string]*models.Book
	holdings     []*models.Holding
	holdingByID  map[string]*models.Holding
	actions      []models.Action
	wallets      map[string]*models.Wallet
	walletByUser map[string]string
	movements    []models.Movement
	restocks     map[string]*models.Restock
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		books:        map[string]*models.Book{},
		holdingByID:  map[string]*models.Holding{},
		wallets:      map[string]*models.Wallet{},
		walletByUser: map[string]string{},
		restocks:     map[string]*models.Restock{},
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

// InTx runs fn while holding the store lock and applies its buffered writes if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{s: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, op := range tx.ops {
		op()
	}
	return nil
}

// CreateBook adds a book to the catalog.
func (s *Store) CreateBook(ctx context.Context, book *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[book.ID]; ok {
		return storage.ErrDuplicate
	}
	s.books[book.ID] = cloneBook(book)
	return nil
}

func (s *Store) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[bookID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneBook(b), nil
}

func (s *Store) SearchBooks(ctx context.Context, filter storage.BookFilter, page models.PageRequest) ([]models.Book, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.Book
	for _, b := range s.books {
		if filter.Title != "" && !strings.Contains(b.Title, filter.Title) {
			continue
		}
		if filter.Author != "" && !slices.Contains(b.Authors, filter.Author) {
			continue
		}
		if filter.Genre != "" && !slices.Contains(b.Genres, filter.Genre) {
			continue
		}
		matches = append(matches, *cloneBook(b))
	}
	slices.SortFunc(matches, func(a, b models.Book) int {
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	start, end := page.Window(len(matches))
	return matches[start:end], len(matches), nil
}

func (s *Store) ListHoldings(ctx context.Context, q storage.HoldingQuery, page models.PageRequest) ([]models.Holding, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.Holding
	for i := len(s.holdings) - 1; i >= 0; i-- {
		h := s.holdings[i]
		if h.UserID != q.UserID {
			continue
		}
		if q.Type != nil && h.Type != *q.Type {
			continue
		}
		if q.Status != nil && h.Status != *q.Status {
			continue
		}
		matches = append(matches, *h)
	}

	start, end := page.Window(len(matches))
	return matches[start:end], len(matches), nil
}

func (s *Store) ListActiveBorrowsBefore(ctx context.Context, cutoff time.Time) ([]models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Holding
	for _, h := range s.holdings {
		if h.Type == models.BORROWED && h.Status == models.ACTIVE && h.CreatedAt.Before(cutoff) {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (s *Store) ListActions(ctx context.Context, q storage.ActionQuery, page models.PageRequest) ([]models.Action, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.Action
	for i := len(s.actions) - 1; i >= 0; i-- {
		a := s.actions[i]
		if a.BookID != q.BookID {
			continue
		}
		if q.Type != nil && a.Type != *q.Type {
			continue
		}
		if q.UserID != "" && a.UserID != q.UserID {
			continue
		}
		matches = append(matches, a)
	}

	start, end := page.Window(len(matches))
	return matches[start:end], len(matches), nil
}

// CreateWallet stores a new wallet, one per user.
func (s *Store) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.walletByUser[wallet.UserID]; ok {
		return storage.ErrDuplicate
	}
	w := *wallet
	s.wallets[w.ID] = &w
	s.walletByUser[w.UserID] = w.ID
	return nil
}

func (s *Store) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *Store) GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.walletByUser[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s.wallets[id]
	return &cp, nil
}

func (s *Store) ListMovements(ctx context.Context, q storage.MovementQuery, page models.PageRequest) ([]models.Movement, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.Movement
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if m.WalletID != q.WalletID {
			continue
		}
		if q.Type != nil && m.Type != *q.Type {
			continue
		}
		matches = append(matches, m)
	}

	start, end := page.Window(len(matches))
	return matches[start:end], len(matches), nil
}

func (s *Store) ListPendingRestocksDueBefore(ctx context.Context, cutoff time.Time) ([]models.Restock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Restock
	for _, r := range s.restocks {
		if r.Status == models.PENDING && r.DueAt.Before(cutoff) {
			out = append(out, *r)
		}
	}
	slices.SortFunc(out, func(a, b models.Restock) int { return a.DueAt.Compare(b.DueAt) })
	return out, nil
}

func cloneBook(b *models.Book) *models.Book {
	cp := *b
	cp.Authors = slices.Clone(b.Authors)
	cp.Genres = slices.Clone(b.Genres)
	return &cp
}
