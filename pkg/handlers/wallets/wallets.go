package wallets

import (
	"context"
	"net/http"

	"github.com/chris/library-ledger/pkg/handlers/response"
	"github.com/chris/library-ledger/pkg/mapping"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/chris/library-ledger/pkg/wallet"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Ledger is the wallet ledger served by these handlers.
type Ledger interface {
	CreateWallet(ctx context.Context, userID string) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletID string) (*models.Wallet, error)
	GetWalletForUser(ctx context.Context, userID string) (*models.Wallet, error)
	AddMovement(ctx context.Context, walletID string, amount decimal.Decimal, typ models.MovementType, description string) (*wallet.MovementResult, error)
	ListMovements(ctx context.Context, q storage.MovementQuery, page models.PageRequest) ([]models.Movement, models.Pagination, error)
}

// WalletsHandler holds the dependencies for wallet-related handlers.
type WalletsHandler struct {
	Ledger Ledger
}

// NewWalletsHandler creates a new WalletsHandler.
func NewWalletsHandler(ledger Ledger) *WalletsHandler {
	return &WalletsHandler{Ledger: ledger}
}

// CreateWallet handles POST /users/{userId}/wallet.
func (h *WalletsHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	created, err := h.Ledger.CreateWallet(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, mapping.ToApiWallet(created))
}

// GetWalletByUserId handles GET /users/{userId}/wallet.
func (h *WalletsHandler) GetWalletByUserId(w http.ResponseWriter, r *http.Request) {
	found, err := h.Ledger.GetWalletForUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, mapping.ToApiWallet(found))
}

// GetWallet handles GET /wallets/{walletId}.
func (h *WalletsHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	found, err := h.Ledger.GetWallet(r.Context(), chi.URLParam(r, "walletId"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, mapping.ToApiWallet(found))
}

// AddMovement handles POST /wallets/{walletId}/movements.
func (h *WalletsHandler) AddMovement(w http.ResponseWriter, r *http.Request) {
	var body mapping.NewMovement
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, r, err)
		return
	}

	result, err := h.Ledger.AddMovement(r.Context(), chi.URLParam(r, "walletId"), body.Amount, models.MovementType(body.Type), body.Description)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, mapping.ToApiMovementResult(result))
}

// ListMovements handles GET /wallets/{walletId}/movements.
func (h *WalletsHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := storage.MovementQuery{WalletID: chi.URLParam(r, "walletId")}

	var typ *string
	if err := response.Query(q, "type", &typ); err != nil {
		response.Error(w, r, err)
		return
	}
	if typ != nil {
		t := models.MovementType(*typ)
		query.Type = &t
	}
	page, err := response.PageRequest(q)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	movements, pagination, err := h.Ledger.ListMovements(r.Context(), query, page)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Page(w, mapping.ToApiMovements(movements), pagination)
}
