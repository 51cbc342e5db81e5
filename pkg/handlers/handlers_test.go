package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chris/library-ledger/pkg/engine"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/storage/memory"
	"github.com/chris/library-ledger/pkg/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discard struct{}

func (discard) Notify(ctx context.Context, msg notify.Message)          {}
func (discard) ScheduleRestock(ctx context.Context, task models.Restock) {}

type body struct {
	Success    bool               `json:"success"`
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
}

func newServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.CreateBook(context.Background(), &models.Book{
		ID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"}, Genres: []string{"sci-fi"}, Copies: 4,
	}))
	require.NoError(t, store.CreateBook(context.Background(), &models.Book{
		ID: "b2", Title: "Emma", Authors: []string{"Jane Austen"}, Genres: []string{"classic"}, Copies: 0,
	}))

	inv := engine.New(store, store, discard{}, engine.DefaultPolicy())
	ledger := wallet.New(store, store, discard{}, wallet.DefaultPolicy())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(NewApiHandler(inv, inv, ledger).Router(logger))
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, srv *httptest.Server, method, path, userID, payload string) (int, body) {
	t.Helper()
	var reader io.Reader
	if payload != "" {
		reader = strings.NewReader(payload)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var b body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	return resp.StatusCode, b
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)
	status, b := do(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, b.Success)
}

func TestBooksRoutes(t *testing.T) {
	srv, _ := newServer(t)

	t.Run("Borrow", func(t *testing.T) {
		status, b := do(t, srv, http.MethodPost, "/books/b1/borrow", "u1", "")
		require.Equal(t, http.StatusOK, status)
		assert.True(t, b.Success)

		var receipt struct {
			Book    struct{ Copies int }
			Holding struct {
				Type   string
				Status string
			}
		}
		require.NoError(t, json.Unmarshal(b.Data, &receipt))
		assert.Equal(t, 3, receipt.Book.Copies)
		assert.Equal(t, "BORROWED", receipt.Holding.Type)
		assert.Equal(t, "ACTIVE", receipt.Holding.Status)
	})

	t.Run("Borrow Twice", func(t *testing.T) {
		status, b := do(t, srv, http.MethodPost, "/books/b1/borrow", "u1", "")
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "ALREADY_HELD", b.Code)
	})

	t.Run("Missing User Header", func(t *testing.T) {
		status, b := do(t, srv, http.MethodPost, "/books/b1/borrow", "", "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.False(t, b.Success)
		assert.Equal(t, "INVALID_INPUT", b.Code)
	})

	t.Run("Unknown Book", func(t *testing.T) {
		status, b := do(t, srv, http.MethodPost, "/books/nope/borrow", "u1", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "BOOK_NOT_FOUND", b.Code)
	})

	t.Run("Out Of Stock", func(t *testing.T) {
		status, b := do(t, srv, http.MethodPost, "/books/b2/borrow", "u1", "")
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "OUT_OF_STOCK", b.Code)
	})

	t.Run("Buy Too Many", func(t *testing.T) {
		status, b := do(t, srv, http.MethodPost, "/books/b1/buy", "u2", `{"quantity":3}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_QUANTITY", b.Code)
	})

	t.Run("Return", func(t *testing.T) {
		status, _ := do(t, srv, http.MethodPost, "/books/b1/return", "u1", "")
		assert.Equal(t, http.StatusOK, status)

		status, b := do(t, srv, http.MethodPost, "/books/b1/return", "u1", "")
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "NOT_BORROWED", b.Code)
	})

	t.Run("Actions", func(t *testing.T) {
		status, b := do(t, srv, http.MethodGet, "/books/b1/actions?actionType=BORROW", "", "")
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, b.Pagination)
		assert.Equal(t, 1, b.Pagination.Total)
	})

	t.Run("Search", func(t *testing.T) {
		status, b := do(t, srv, http.MethodGet, "/books?author=Jane%20Austen", "", "")
		require.Equal(t, http.StatusOK, status)
		var books []struct{ ID string }
		require.NoError(t, json.Unmarshal(b.Data, &books))
		require.Len(t, books, 1)
		assert.Equal(t, "b2", books[0].ID)
	})

	t.Run("Huge Page", func(t *testing.T) {
		status, b := do(t, srv, http.MethodGet, "/books?page=9223372036854775807", "", "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_INPUT", b.Code)
	})

	t.Run("Bad Limit", func(t *testing.T) {
		status, b := do(t, srv, http.MethodGet, "/books?limit=500", "", "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_INPUT", b.Code)
	})
}

func TestUserBooks(t *testing.T) {
	srv, _ := newServer(t)
	do(t, srv, http.MethodPost, "/books/b1/borrow", "u1", "")
	do(t, srv, http.MethodPost, "/books/b1/buy", "u1", `{"quantity":1}`)

	status, b := do(t, srv, http.MethodGet, "/users/u1/books?type=BOUGHT", "", "")
	require.Equal(t, http.StatusOK, status)
	var holdings []struct{ Type string }
	require.NoError(t, json.Unmarshal(b.Data, &holdings))
	require.Len(t, holdings, 1)
	assert.Equal(t, "BOUGHT", holdings[0].Type)
}

func TestWalletRoutes(t *testing.T) {
	srv, _ := newServer(t)

	status, b := do(t, srv, http.MethodPost, "/users/u1/wallet", "", "")
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		ID      string
		Balance string
	}
	require.NoError(t, json.Unmarshal(b.Data, &created))
	assert.Equal(t, "0.00", created.Balance)

	status, b = do(t, srv, http.MethodPost, "/users/u1/wallet", "", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "WALLET_EXISTS", b.Code)

	status, _ = do(t, srv, http.MethodGet, "/users/u1/wallet", "", "")
	assert.Equal(t, http.StatusOK, status)

	movements := "/wallets/" + created.ID + "/movements"
	status, b = do(t, srv, http.MethodPost, movements, "", `{"amount":"10.50","type":"CREDIT","description":"deposit"}`)
	require.Equal(t, http.StatusCreated, status)
	var result struct {
		Wallet struct{ Balance string }
	}
	require.NoError(t, json.Unmarshal(b.Data, &result))
	assert.Equal(t, "10.50", result.Wallet.Balance)

	status, b = do(t, srv, http.MethodPost, movements, "", `{"amount":"20","type":"DEBIT"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_FUNDS", b.Code)

	status, b = do(t, srv, http.MethodPost, movements, "", `{"amount":"1","type":"REFUND"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", b.Code)

	status, b = do(t, srv, http.MethodGet, movements+"?page=1&limit=5", "", "")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, b.Pagination)
	assert.Equal(t, 1, b.Pagination.Total)
	assert.Equal(t, 5, b.Pagination.Limit)

	status, b = do(t, srv, http.MethodGet, "/wallets/missing", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "WALLET_NOT_FOUND", b.Code)
}
