// Package bootstrap builds the store, scheduler and notification senders
// selected by the configuration. Every binary under cmd/ starts here.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/library-ledger/pkg/config"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/scheduler"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/chris/library-ledger/pkg/storage/dynamodb"
	"github.com/chris/library-ledger/pkg/storage/memory"
	"github.com/chris/library-ledger/pkg/storage/postgres"
	"github.com/chris/library-ledger/pkg/websockets"
)

// Services holds the infrastructure shared by the engine, the ledger and the background jobs.
type Services struct {
	Config *config.Config
	Store  storage.Storage

	// Connections is set when the store can track dashboard connections.
	Connections websockets.ConnectionStore

	aws    *aws.Config
	closer func()
}

// Open connects the configured store. AWS configuration is only loaded when
// a selected backend needs it.
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{Config: cfg, closer: func() {}}

	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		awsCfg, err := s.AWS(ctx)
		if err != nil {
			return nil, err
		}
		store := dynamodb.New(awsdynamodb.NewFromConfig(awsCfg), dynamodb.Tables(cfg.Tables))
		s.Store = store
		if cfg.Tables.Connections != "" {
			s.Connections = store
		}
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithLogger(slog.Default()))
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		s.Store = store
		s.closer = store.Close
	case config.BackendMemory:
		s.Store = memory.New()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return s, nil
}

// AWS loads the default AWS SDK configuration once.
func (s *Services) AWS(ctx context.Context) (aws.Config, error) {
	if s.aws != nil {
		return *s.aws, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	s.aws = &awsCfg
	return awsCfg, nil
}

// Scheduler returns the SQS scheduler, or an in-process timer scheduler handing due restocks to handler.
func (s *Services) Scheduler(ctx context.Context, handler scheduler.Handler) (scheduler.Scheduler, error) {
	if s.Config.Scheduler == config.SchedulerSQS {
		awsCfg, err := s.AWS(ctx)
		if err != nil {
			return nil, err
		}
		return scheduler.NewSQSScheduler(sqs.NewFromConfig(awsCfg), s.Config.SQSQueueURL), nil
	}
	return scheduler.NewTimerScheduler(handler, s.Config.EffectTimeout), nil
}

// Sender returns the configured email or log sender, fanned out to staff dashboards.
// hub receives dashboard notifications when no websocket API endpoint is configured.
func (s *Services) Sender(ctx context.Context, hub *websockets.Hub) (notify.Sender, error) {
	var primary notify.Sender = &notify.LogSender{Logger: slog.Default()}
	if s.Config.Notifier == config.NotifierSES {
		awsCfg, err := s.AWS(ctx)
		if err != nil {
			return nil, err
		}
		primary = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), s.Config.EmailFrom)
	}

	publisher, err := s.Publisher(ctx, hub)
	if err != nil {
		return nil, err
	}
	return notify.Fanout{primary, websockets.NewSender(publisher)}, nil
}

// Publisher picks how dashboard notifications are pushed.
func (s *Services) Publisher(ctx context.Context, hub *websockets.Hub) (websockets.Publisher, error) {
	switch {
	case s.Config.WebsocketEndpoint != "" && s.Connections != nil:
		awsCfg, err := s.AWS(ctx)
		if err != nil {
			return nil, err
		}
		return websockets.NewGatewayPublisher(s.Connections, websockets.NewGatewayClient(awsCfg, s.Config.WebsocketEndpoint)), nil
	case hub != nil:
		return hub, nil
	}
	return &websockets.NoOpPublisher{}, nil
}

// Close releases the store's connections.
func (s *Services) Close() {
	s.closer()
}
