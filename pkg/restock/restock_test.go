package restock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chris/library-ledger/pkg/engine"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type scheduled struct {
	task  models.Restock
	delay time.Duration
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduled
	fail  map[string]bool
}

func (f *fakeScheduler) ScheduleRestock(ctx context.Context, task models.Restock, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[task.ID] {
		return errors.New("queue unavailable")
	}
	f.calls = append(f.calls, scheduled{task: task, delay: delay})
	return nil
}

type nopDispatcher struct{}

func (nopDispatcher) Notify(ctx context.Context, msg notify.Message)           {}
func (nopDispatcher) ScheduleRestock(ctx context.Context, task models.Restock) {}

// pendingRestock borrows the second to last copy of a book so the engine records a restock.
func pendingRestock(t *testing.T) (*memory.Store, *engine.Engine, models.Restock) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateBook(ctx, &models.Book{ID: "b1", Title: "Dune", Copies: 2}))

	e := engine.New(store, store, nopDispatcher{}, engine.DefaultPolicy(),
		engine.WithClock(func() time.Time { return testNow }))
	receipt, err := e.Borrow(ctx, "b1", "u1")
	require.NoError(t, err)
	require.NotNil(t, receipt.Restock)
	return store, e, *receipt.Restock
}

func TestProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("Early Delivery Is Rescheduled", func(t *testing.T) {
		store, e, task := pendingRestock(t)
		sched := &fakeScheduler{}
		p := NewProcessor(e, sched)
		p.now = func() time.Time { return testNow.Add(15 * time.Minute) }

		require.NoError(t, p.Process(ctx, task))
		require.Len(t, sched.calls, 1)
		assert.Equal(t, 45*time.Minute, sched.calls[0].delay)

		b, _ := store.GetBook(ctx, "b1")
		assert.Equal(t, 1, b.Copies)
	})

	t.Run("Due Delivery Completes", func(t *testing.T) {
		store, e, task := pendingRestock(t)
		sched := &fakeScheduler{}
		p := NewProcessor(e, sched)
		p.now = func() time.Time { return testNow.Add(time.Hour) }

		require.NoError(t, p.Process(ctx, task))
		require.NoError(t, p.Process(ctx, task))
		assert.Empty(t, sched.calls)

		b, _ := store.GetBook(ctx, "b1")
		assert.Equal(t, 6, b.Copies)
	})

	t.Run("Unknown Restock Is Dropped", func(t *testing.T) {
		_, e, _ := pendingRestock(t)
		p := NewProcessor(e, &fakeScheduler{})
		assert.NoError(t, p.Process(ctx, models.Restock{ID: "missing", DueAt: testNow.Add(-time.Hour)}))
	})
}

func TestReconciler(t *testing.T) {
	ctx := context.Background()

	t.Run("Enqueues Overdue", func(t *testing.T) {
		store, _, task := pendingRestock(t)
		sched := &fakeScheduler{}
		r := NewReconciler(store, sched, DefaultGrace)

		r.now = func() time.Time { return testNow.Add(time.Hour + time.Minute) }
		n, err := r.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "within grace period")

		r.now = func() time.Time { return testNow.Add(2 * time.Hour) }
		n, err = r.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, task.ID, sched.calls[0].task.ID)
		assert.Zero(t, sched.calls[0].delay)
	})

	t.Run("Skips Completed", func(t *testing.T) {
		store, e, task := pendingRestock(t)
		_, err := e.CompleteRestock(ctx, task.ID)
		require.NoError(t, err)

		sched := &fakeScheduler{}
		r := NewReconciler(store, sched, DefaultGrace)
		r.now = func() time.Time { return testNow.Add(2 * time.Hour) }
		n, err := r.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Failure Does Not Stop Batch", func(t *testing.T) {
		store, _, task := pendingRestock(t)
		sched := &fakeScheduler{fail: map[string]bool{task.ID: true}}
		r := NewReconciler(store, sched, 0)
		r.now = func() time.Time { return testNow.Add(2 * time.Hour) }

		n, err := r.Sweep(ctx)
		assert.Error(t, err)
		assert.Zero(t, n)
	})
}
