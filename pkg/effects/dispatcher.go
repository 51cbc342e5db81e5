// Package effects runs side effects that follow a committed transaction.
// Nothing here can fail the operation that produced the effect.
package effects

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/scheduler"
)

const defaultTimeout = 10 * time.Second

// Dispatcher sends notifications and schedules restocks in the background.
type Dispatcher struct {
	sender    notify.Sender
	scheduler scheduler.Scheduler
	timeout   time.Duration
	now       func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each background send or enqueue.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithClock overrides the clock used to compute restock delays.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(sender notify.Sender, sched scheduler.Scheduler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		scheduler: sched,
		timeout:   defaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify sends msg without blocking the caller. Failures are logged and dropped.
func (d *Dispatcher) Notify(ctx context.Context, msg notify.Message) {
	d.run(ctx, func(ctx context.Context) {
		if err := d.sender.Send(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "failed to send notification", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	})
}

// ScheduleRestock hands a committed restock to the scheduler without blocking the caller.
// The restock row is already durable, so a failed enqueue is recovered by reconciliation.
func (d *Dispatcher) ScheduleRestock(ctx context.Context, task models.Restock) {
	delay := task.DueAt.Sub(d.now())
	d.run(ctx, func(ctx context.Context) {
		if err := d.scheduler.ScheduleRestock(ctx, task, delay); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: restock created but failed to enqueue", "restockId", task.ID, "bookId", task.BookID, "error", err)
		}
	})
}

// Wait blocks until every effect started so far has finished.
// Callers that may still be dispatching concurrently must use Close instead.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting effects and waits for the running ones.
// Effects dispatched after Close are logged and dropped; a dropped restock
// stays PENDING in the store for the reconciler.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, fn func(ctx context.Context)) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		slog.WarnContext(ctx, "dispatcher closed, dropping effect")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	go func() {
		defer d.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in deferred effect", "panic", r)
			}
		}()
		fn(ctx)
	}()
}
