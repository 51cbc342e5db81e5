package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chris/library-ledger/pkg/models"
)

// Handler processes a restock once it is delivered.
type Handler func(ctx context.Context, task models.Restock) error

// TimerScheduler runs restocks in process. Pending timers are lost on exit;
// the reconciler picks their restocks up again from the store.
type TimerScheduler struct {
	handler Handler
	timeout time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewTimerScheduler creates a TimerScheduler that hands due restocks to handler.
func NewTimerScheduler(handler Handler, timeout time.Duration) *TimerScheduler {
	return &TimerScheduler{
		handler: handler,
		timeout: timeout,
		timers:  map[string]*time.Timer{},
	}
}

var _ Scheduler = (*TimerScheduler)(nil)

// ScheduleRestock arms a timer for the task. Scheduling a task that is already armed replaces its timer.
func (s *TimerScheduler) ScheduleRestock(ctx context.Context, task models.Restock, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	if t, ok := s.timers[task.ID]; ok {
		t.Stop()
	}
	s.timers[task.ID] = time.AfterFunc(max(delay, 0), func() { s.fire(task) })
	return nil
}

// Pending returns the number of armed timers.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms every pending timer and rejects new ones.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *TimerScheduler) fire(task models.Restock) {
	s.mu.Lock()
	delete(s.timers, task.ID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.handler(ctx, task); err != nil {
		slog.Error("restock handler failed", "restockId", task.ID, "bookId", task.BookID, "error", err)
	}
}
