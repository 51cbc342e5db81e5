package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/chris/library-ledger/pkg/config"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/scheduler"
	"github.com/chris/library-ledger/pkg/storage/memory"
	"github.com/chris/library-ledger/pkg/websockets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreBackend:  config.BackendMemory,
		Scheduler:     config.SchedulerLocal,
		Notifier:      config.NotifierLog,
		EffectTimeout: time.Second,
	}
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, memoryConfig())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &memory.Store{}, s.Store)
	assert.Nil(t, s.Connections)
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "cassandra"
	_, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "cassandra")
}

func TestLocalScheduler(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, memoryConfig())
	require.NoError(t, err)

	fired := make(chan string, 1)
	sched, err := s.Scheduler(ctx, func(ctx context.Context, task models.Restock) error {
		fired <- task.ID
		return nil
	})
	require.NoError(t, err)
	require.IsType(t, &scheduler.TimerScheduler{}, sched)

	require.NoError(t, sched.ScheduleRestock(ctx, models.Restock{ID: "r1"}, 0))
	select {
	case id := <-fired:
		assert.Equal(t, "r1", id)
	case <-time.After(time.Second):
		t.Fatal("restock was not delivered")
	}
}

func TestSender(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, memoryConfig())
	require.NoError(t, err)

	t.Run("Without Hub", func(t *testing.T) {
		sender, err := s.Sender(ctx, nil)
		require.NoError(t, err)
		fanout, ok := sender.(notify.Fanout)
		require.True(t, ok)
		require.Len(t, fanout, 2)
		assert.IsType(t, &notify.LogSender{}, fanout[0])
		assert.IsType(t, &websockets.NoOpPublisher{}, fanout[1].(*websockets.Sender).Publisher)
		assert.NoError(t, sender.Send(ctx, notify.Message{To: "a@b.c", Subject: "hi"}))
	})

	t.Run("With Hub", func(t *testing.T) {
		hub := websockets.NewHub()
		publisher, err := s.Publisher(ctx, hub)
		require.NoError(t, err)
		assert.Same(t, hub, publisher)
	})
}
