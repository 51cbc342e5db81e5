package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/chris/library-ledger/pkg/bootstrap"
	"github.com/chris/library-ledger/pkg/config"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type seedBook struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Genres  []string `json:"genres"`
	Prices  struct {
		Sell   decimal.Decimal `json:"sell"`
		Borrow decimal.Decimal `json:"borrow"`
		Stock  decimal.Decimal `json:"stock"`
	} `json:"prices"`
	Copies int `json:"copies"`
}

// readBooks parses a books.json catalog.
func readBooks(r io.Reader, now time.Time) ([]models.Book, error) {
	var raw []seedBook
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode books: %w", err)
	}

	books := make([]models.Book, 0, len(raw))
	for i, b := range raw {
		if b.Title == "" {
			return nil, fmt.Errorf("book %d has no title", i)
		}
		if b.Copies < 0 {
			return nil, fmt.Errorf("book %q has negative copies", b.Title)
		}
		books = append(books, models.Book{
			ID:          uuid.New().String(),
			Title:       b.Title,
			Authors:     b.Authors,
			Genres:      b.Genres,
			SellPrice:   b.Prices.Sell,
			BorrowPrice: b.Prices.Borrow,
			StockPrice:  b.Prices.Stock,
			Copies:      b.Copies,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return books, nil
}

func main() {
	path := flag.String("file", "books.json", "catalog to load")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.StoreBackend == config.BackendMemory {
		log.Fatal("seeding the memory backend has no effect, set STORE_BACKEND")
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *path, err)
	}
	defer f.Close()

	books, err := readBooks(f, time.Now().UTC())
	if err != nil {
		log.Fatalf("failed to read %s: %v", *path, err)
	}

	ctx := context.Background()
	services, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer services.Close()

	created := 0
	for i := range books {
		err := services.Store.CreateBook(ctx, &books[i])
		if errors.Is(err, storage.ErrDuplicate) {
			continue
		}
		if err != nil {
			log.Fatalf("failed to create book %q: %v", books[i].Title, err)
		}
		created++
	}
	log.Printf("Seeded %d of %d books into %s", created, len(books), cfg.StoreBackend)
}
