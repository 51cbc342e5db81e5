// Package restock applies delayed restocks delivered by a scheduler and
// re-enqueues the ones whose delivery was lost.
package restock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/library-ledger/pkg/apperrors"
	"github.com/chris/library-ledger/pkg/engine"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/scheduler"
)

// Completer applies a restock to its book.
type Completer interface {
	CompleteRestock(ctx context.Context, restockID string) (*engine.Receipt, error)
}

// Processor handles restock deliveries.
type Processor struct {
	completer Completer
	scheduler scheduler.Scheduler
	now       func() time.Time
}

// NewProcessor creates a new Processor. sched receives tasks delivered before they are due.
func NewProcessor(completer Completer, sched scheduler.Scheduler) *Processor {
	return &Processor{completer: completer, scheduler: sched, now: time.Now}
}

// Process completes a delivered restock. Transports with a delay cap, such as SQS,
// deliver long delays early; those tasks are scheduled again for the remaining time.
func (p *Processor) Process(ctx context.Context, task models.Restock) error {
	if remaining := task.DueAt.Sub(p.now()); remaining > 0 {
		slog.InfoContext(ctx, "restock not due yet, rescheduling", "restockId", task.ID, "remaining", remaining)
		if err := p.scheduler.ScheduleRestock(ctx, task, remaining); err != nil {
			return fmt.Errorf("failed to reschedule restock %s: %w", task.ID, err)
		}
		return nil
	}

	receipt, err := p.completer.CompleteRestock(ctx, task.ID)
	if errors.Is(err, apperrors.ErrRestockNotFound) {
		slog.WarnContext(ctx, "dropping delivery of unknown restock", "restockId", task.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to complete restock %s: %w", task.ID, err)
	}

	slog.InfoContext(ctx, "restock processed", "restockId", task.ID, "bookId", receipt.Book.ID, "copies", receipt.Book.Copies)
	return nil
}
