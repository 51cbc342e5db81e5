package restock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/scheduler"
)

// DefaultGrace is how long a restock may stay PENDING past its due time before it is considered stuck.
const DefaultGrace = 5 * time.Minute

// PendingLister finds restocks that are still pending.
type PendingLister interface {
	ListPendingRestocksDueBefore(ctx context.Context, cutoff time.Time) ([]models.Restock, error)
}

// Reconciler re-enqueues restocks that are overdue, for example because their
// scheduler message was never sent or the process holding its timer exited.
type Reconciler struct {
	lister    PendingLister
	scheduler scheduler.Scheduler
	grace     time.Duration
	now       func() time.Time
}

// NewReconciler creates a new Reconciler.
func NewReconciler(lister PendingLister, sched scheduler.Scheduler, grace time.Duration) *Reconciler {
	return &Reconciler{lister: lister, scheduler: sched, grace: grace, now: time.Now}
}

// Sweep enqueues every stuck restock for immediate processing and returns how many were enqueued.
// One failed enqueue does not stop the rest of the batch.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	stuck, err := r.lister.ListPendingRestocksDueBefore(ctx, r.now().Add(-r.grace))
	if err != nil {
		return 0, fmt.Errorf("failed to list pending restocks: %w", err)
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "re-enqueuing stuck restocks", "count", len(stuck))
	var errs []error
	enqueued := 0
	for _, task := range stuck {
		if err := r.scheduler.ScheduleRestock(ctx, task, 0); err != nil {
			slog.ErrorContext(ctx, "failed to re-enqueue restock", "restockId", task.ID, "error", err)
			errs = append(errs, fmt.Errorf("restock %s: %w", task.ID, err))
			continue
		}
		enqueued++
	}
	return enqueued, errors.Join(errs...)
}
