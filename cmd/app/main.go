package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris/library-ledger/pkg/bootstrap"
	"github.com/chris/library-ledger/pkg/config"
	"github.com/chris/library-ledger/pkg/effects"
	"github.com/chris/library-ledger/pkg/engine"
	"github.com/chris/library-ledger/pkg/handlers"
	wshandlers "github.com/chris/library-ledger/pkg/handlers/websockets"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/reminders"
	"github.com/chris/library-ledger/pkg/restock"
	"github.com/chris/library-ledger/pkg/scheduler"
	"github.com/chris/library-ledger/pkg/wallet"
	"github.com/chris/library-ledger/pkg/websockets"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer services.Close()

	// The local scheduler delivers into the processor, which needs the engine built below.
	var processor *restock.Processor
	sched, err := services.Scheduler(ctx, func(ctx context.Context, task models.Restock) error {
		return processor.Process(ctx, task)
	})
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	timers, _ := sched.(*scheduler.TimerScheduler)

	hub := websockets.NewHub()
	sender, err := services.Sender(ctx, hub)
	if err != nil {
		log.Fatalf("failed to create notification sender: %v", err)
	}

	dispatcher := effects.NewDispatcher(sender, sched, effects.WithTimeout(cfg.EffectTimeout))
	inventory := engine.New(services.Store, services.Store, dispatcher, cfg.Engine)
	ledger := wallet.New(services.Store, services.Store, dispatcher, cfg.Wallet)
	processor = restock.NewProcessor(inventory, sched)

	api := handlers.NewApiHandler(inventory, inventory, ledger)
	api.Dashboard = wshandlers.NewLocalHandler(hub)

	// Lambdas cover these sweeps in AWS; BACKGROUND_JOBS runs them in the server instead.
	if cfg.BackgroundJobs {
		reconciler := restock.NewReconciler(services.Store, sched, cfg.ReconcileGrace)
		go every(ctx, cfg.ReconcileInterval, func(ctx context.Context) {
			if _, err := reconciler.Sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "restock reconciliation failed", "error", err)
			}
		})
		reminderService := reminders.NewService(services.Store, sender, cfg.BorrowPeriod)
		go every(ctx, cfg.ReminderInterval, func(ctx context.Context) {
			if _, err := reminderService.SendReturnReminders(ctx); err != nil {
				slog.ErrorContext(ctx, "return reminders failed", "error", err)
			}
		})
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: graceful shutdown failed: %v", err)
	}
	// Timer callbacks dispatch effects, so stop them before closing the dispatcher.
	if timers != nil {
		timers.Stop()
	}
	dispatcher.Close()
}

// every runs fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
