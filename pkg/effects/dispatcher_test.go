package effects

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeScheduler struct {
	mu     sync.Mutex
	delays map[string]time.Duration
	err    error
	ctxErr error
}

func (f *fakeScheduler) ScheduleRestock(ctx context.Context, task models.Restock, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delays == nil {
		f.delays = map[string]time.Duration{}
	}
	f.delays[task.ID] = delay
	f.ctxErr = ctx.Err()
	return f.err
}

func TestDispatcher(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Notify Outlives Request Context", func(t *testing.T) {
		sender := &fakeSender{}
		d := NewDispatcher(sender, &fakeScheduler{})

		ctx, cancel := context.WithCancel(context.Background())
		d.Notify(ctx, notify.Message{To: "m@library.com", Subject: "Low Stock Alert"})
		cancel()
		d.Wait()

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "Low Stock Alert", sender.sent[0].Subject)
	})

	t.Run("Send Failure Is Swallowed", func(t *testing.T) {
		sender := &fakeSender{err: errors.New("smtp down")}
		d := NewDispatcher(sender, &fakeScheduler{})

		assert.NotPanics(t, func() {
			d.Notify(context.Background(), notify.Message{To: "x"})
			d.Wait()
		})
		assert.Len(t, sender.sent, 1)
	})

	t.Run("Schedule Restock Uses Remaining Delay", func(t *testing.T) {
		sched := &fakeScheduler{}
		d := NewDispatcher(&fakeSender{}, sched, WithClock(func() time.Time { return now }))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.ScheduleRestock(ctx, models.Restock{ID: "r1", DueAt: now.Add(time.Hour)})
		d.Wait()

		assert.Equal(t, time.Hour, sched.delays["r1"])
		assert.NoError(t, sched.ctxErr)
	})

	t.Run("Enqueue Failure Is Swallowed", func(t *testing.T) {
		sched := &fakeScheduler{err: errors.New("queue unavailable")}
		d := NewDispatcher(&fakeSender{}, sched, WithTimeout(time.Second))

		d.ScheduleRestock(context.Background(), models.Restock{ID: "r1", DueAt: time.Now()})
		d.Wait()
		assert.Contains(t, sched.delays, "r1")
	})

	t.Run("Close Drops Later Effects", func(t *testing.T) {
		sender := &fakeSender{}
		sched := &fakeScheduler{}
		d := NewDispatcher(sender, sched)

		d.Notify(context.Background(), notify.Message{To: "m@library.com", Subject: "Before"})
		d.Close()
		d.Notify(context.Background(), notify.Message{To: "m@library.com", Subject: "After"})
		d.ScheduleRestock(context.Background(), models.Restock{ID: "r1", DueAt: time.Now()})
		d.Wait()

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "Before", sender.sent[0].Subject)
		assert.Empty(t, sched.delays)
	})

	t.Run("Close While Dispatching", func(t *testing.T) {
		sender := &fakeSender{}
		d := NewDispatcher(sender, &fakeScheduler{})

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.Notify(context.Background(), notify.Message{To: "m@library.com"})
			}()
		}
		d.Close()
		wg.Wait()
		d.Wait()

		sender.mu.Lock()
		defer sender.mu.Unlock()
		assert.LessOrEqual(t, len(sender.sent), 20)
	})
}
