package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/library-ledger/pkg/bootstrap"
	"github.com/chris/library-ledger/pkg/config"
	"github.com/chris/library-ledger/pkg/effects"
	"github.com/chris/library-ledger/pkg/engine"
	"github.com/chris/library-ledger/pkg/restock"
	"github.com/chris/library-ledger/pkg/scheduler"
)

var (
	processor  *restock.Processor
	dispatcher *effects.Dispatcher
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Scheduler != config.SchedulerSQS {
		log.Fatal("the restock lambda requires SCHEDULER=sqs")
	}

	ctx := context.Background()
	services, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	sched, err := services.Scheduler(ctx, nil)
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	sender, err := services.Sender(ctx, nil)
	if err != nil {
		log.Fatalf("failed to create notification sender: %v", err)
	}

	dispatcher = effects.NewDispatcher(sender, sched, effects.WithTimeout(cfg.EffectTimeout))
	processor = restock.NewProcessor(engine.New(services.Store, services.Store, dispatcher, cfg.Engine), sched)
}

// HandleRequest completes the restocks delivered by SQS.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	// Notifications must go out before the invocation freezes.
	defer dispatcher.Wait()

	for _, message := range sqsEvent.Records {
		log.Printf("Processing message %s", message.MessageId)

		task, err := scheduler.DecodeRestock(message.Body)
		if err != nil {
			log.Printf("ERROR: failed to decode restock from SQS message %s: %v", message.MessageId, err)
			return err
		}

		if err := processor.Process(ctx, task); err != nil {
			log.Printf("ERROR: failed to process restock %s: %v", task.ID, err)
			// Returning an error makes SQS redeliver the batch; completed restocks are skipped on retry.
			return err
		}
	}
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
