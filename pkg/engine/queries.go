package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/library-ledger/pkg/apperrors"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
)

// Search returns one page of the catalog filtered by title, author and genre.
func (e *Engine) Search(ctx context.Context, filter storage.BookFilter, page models.PageRequest) ([]models.Book, models.Pagination, error) {
	page = page.Normalize()
	books, total, err := e.reader.SearchBooks(ctx, filter, page)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to search books: %w", err)
	}
	return books, models.NewPagination(total, page), nil
}

func (e *Engine) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	book, err := e.reader.GetBook(ctx, bookID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", bookID, err)
	}
	return book, nil
}

// ListHoldings returns a user's holdings, newest first.
func (e *Engine) ListHoldings(ctx context.Context, q storage.HoldingQuery, page models.PageRequest) ([]models.Holding, models.Pagination, error) {
	if q.UserID == "" {
		return nil, models.Pagination{}, apperrors.Invalid("user id is required")
	}
	if q.Type != nil && !q.Type.Valid() {
		return nil, models.Pagination{}, apperrors.Invalid("invalid holding type %q", *q.Type)
	}
	if q.Status != nil && !q.Status.Valid() {
		return nil, models.Pagination{}, apperrors.Invalid("invalid holding status %q", *q.Status)
	}

	page = page.Normalize()
	items, total, err := e.reader.ListHoldings(ctx, q, page)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list holdings of user %s: %w", q.UserID, err)
	}
	return items, models.NewPagination(total, page), nil
}

// ListActions returns the action log of a book, newest first.
func (e *Engine) ListActions(ctx context.Context, q storage.ActionQuery, page models.PageRequest) ([]models.Action, models.Pagination, error) {
	if q.Type != nil && !q.Type.Valid() {
		return nil, models.Pagination{}, apperrors.Invalid("invalid action type %q", *q.Type)
	}
	if _, err := e.GetBook(ctx, q.BookID); err != nil {
		return nil, models.Pagination{}, err
	}

	page = page.Normalize()
	items, total, err := e.reader.ListActions(ctx, q, page)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list actions of book %s: %w", q.BookID, err)
	}
	return items, models.NewPagination(total, page), nil
}
