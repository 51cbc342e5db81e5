package holdings

import (
	"context"
	"net/http"

	"github.com/chris/library-ledger/pkg/handlers/response"
	"github.com/chris/library-ledger/pkg/mapping"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// Lister lists the holdings of a user.
type Lister interface {
	ListHoldings(ctx context.Context, q storage.HoldingQuery, page models.PageRequest) ([]models.Holding, models.Pagination, error)
}

// HoldingsHandler serves a user's borrowed and purchased books.
type HoldingsHandler struct {
	Lister Lister
}

func NewHoldingsHandler(lister Lister) *HoldingsHandler {
	return &HoldingsHandler{Lister: lister}
}

// ListUserBooks handles GET /users/{userId}/books.
func (h *HoldingsHandler) ListUserBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := storage.HoldingQuery{UserID: chi.URLParam(r, "userId")}

	var typ, status *string
	if err := response.Query(q, "type", &typ); err != nil {
		response.Error(w, r, err)
		return
	}
	if err := response.Query(q, "status", &status); err != nil {
		response.Error(w, r, err)
		return
	}
	if typ != nil {
		t := models.HoldingType(*typ)
		query.Type = &t
	}
	if status != nil {
		s := models.HoldingStatus(*status)
		query.Status = &s
	}
	page, err := response.PageRequest(q)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	holdings, pagination, err := h.Lister.ListHoldings(r.Context(), query, page)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Page(w, mapping.ToApiHoldings(holdings), pagination)
}
