package books

import (
	"context"
	"net/http"

	"github.com/chris/library-ledger/pkg/engine"
	"github.com/chris/library-ledger/pkg/handlers/response"
	"github.com/chris/library-ledger/pkg/mapping"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// Inventory is the part of the engine served by the books routes.
type Inventory interface {
	Borrow(ctx context.Context, bookID, userID string) (*engine.Receipt, error)
	Return(ctx context.Context, bookID, userID string) (*engine.Receipt, error)
	Buy(ctx context.Context, bookID, userID string, quantity int) (*engine.Receipt, error)
	Search(ctx context.Context, filter storage.BookFilter, page models.PageRequest) ([]models.Book, models.Pagination, error)
	GetBook(ctx context.Context, bookID string) (*models.Book, error)
	ListActions(ctx context.Context, q storage.ActionQuery, page models.PageRequest) ([]models.Action, models.Pagination, error)
}

// BooksHandler holds the dependencies for book-related handlers.
type BooksHandler struct {
	Inventory Inventory
}

// NewBooksHandler creates a new BooksHandler.
func NewBooksHandler(inv Inventory) *BooksHandler {
	return &BooksHandler{Inventory: inv}
}

// Routes mounts the handlers under /books.
func (h *BooksHandler) Routes(r chi.Router) {
	r.Get("/", h.SearchBooks)
	r.Route("/{bookId}", func(r chi.Router) {
		r.Get("/", h.GetBook)
		r.Get("/actions", h.ListActions)
		r.Post("/borrow", h.BorrowBook)
		r.Post("/return", h.ReturnBook)
		r.Post("/buy", h.BuyBook)
	})
}

// SearchBooks filters the catalog by title, author and genre.
func (h *BooksHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter storage.BookFilter
	for name, dest := range map[string]*string{"title": &filter.Title, "author": &filter.Author, "genre": &filter.Genre} {
		if err := response.Query(q, name, dest); err != nil {
			response.Error(w, r, err)
			return
		}
	}
	page, err := response.PageRequest(q)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	books, pagination, err := h.Inventory.Search(r.Context(), filter, page)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Page(w, mapping.ToApiBooks(books), pagination)
}

// GetBook returns one book.
func (h *BooksHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.Inventory.GetBook(r.Context(), chi.URLParam(r, "bookId"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, mapping.ToApiBook(book))
}

// ListActions returns the action log of a book.
func (h *BooksHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := storage.ActionQuery{BookID: chi.URLParam(r, "bookId")}

	var actionType *string
	if err := response.Query(q, "actionType", &actionType); err != nil {
		response.Error(w, r, err)
		return
	}
	if actionType != nil {
		t := models.ActionType(*actionType)
		query.Type = &t
	}
	if err := response.Query(q, "userId", &query.UserID); err != nil {
		response.Error(w, r, err)
		return
	}
	page, err := response.PageRequest(q)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	actions, pagination, err := h.Inventory.ListActions(r.Context(), query, page)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Page(w, mapping.ToApiActions(actions), pagination)
}

// BorrowBook lends one copy to the user in the X-User-ID header.
func (h *BooksHandler) BorrowBook(w http.ResponseWriter, r *http.Request) {
	userID, err := response.UserID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	receipt, err := h.Inventory.Borrow(r.Context(), chi.URLParam(r, "bookId"), userID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, mapping.ToApiReceipt(receipt))
}

// ReturnBook takes back the copy borrowed by the user in the X-User-ID header.
func (h *BooksHandler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	userID, err := response.UserID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	receipt, err := h.Inventory.Return(r.Context(), chi.URLParam(r, "bookId"), userID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, mapping.ToApiReceipt(receipt))
}

// BuyBook sells copies to the user in the X-User-ID header.
func (h *BooksHandler) BuyBook(w http.ResponseWriter, r *http.Request) {
	userID, err := response.UserID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var body mapping.BuyRequest
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, r, err)
		return
	}

	receipt, err := h.Inventory.Buy(r.Context(), chi.URLParam(r, "bookId"), userID, body.Quantity)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, mapping.ToApiReceipt(receipt))
}
