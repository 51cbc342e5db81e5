package handlers

import (
	"log/slog"
	"net/http"

	"github.com/chris/library-ledger/pkg/handlers/books"
	"github.com/chris/library-ledger/pkg/handlers/holdings"
	"github.com/chris/library-ledger/pkg/handlers/response"
	"github.com/chris/library-ledger/pkg/handlers/wallets"
	"github.com/chris/library-ledger/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// ApiHandler groups the handlers mounted on the router.
type ApiHandler struct {
	Books    *books.BooksHandler
	Holdings *holdings.HoldingsHandler
	Wallets  *wallets.WalletsHandler

	// Dashboard serves /ws when set.
	Dashboard http.Handler
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(inv books.Inventory, lister holdings.Lister, ledger wallets.Ledger) *ApiHandler {
	return &ApiHandler{
		Books:    books.NewBooksHandler(inv),
		Holdings: holdings.NewHoldingsHandler(lister),
		Wallets:  wallets.NewWalletsHandler(ledger),
	}
}

// Router builds the chi router with request logging and panic recovery.
func (h *ApiHandler) Router(logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewStructuredLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", Health)
	r.Route("/books", h.Books.Routes)
	r.Get("/users/{userId}/books", h.Holdings.ListUserBooks)
	r.Post("/users/{userId}/wallet", h.Wallets.CreateWallet)
	r.Get("/users/{userId}/wallet", h.Wallets.GetWalletByUserId)
	r.Route("/wallets/{walletId}", func(r chi.Router) {
		r.Get("/", h.Wallets.GetWallet)
		r.Get("/movements", h.Wallets.ListMovements)
		r.Post("/movements", h.Wallets.AddMovement)
	})
	if h.Dashboard != nil {
		r.Handle("/ws", h.Dashboard)
	}
	return r
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
