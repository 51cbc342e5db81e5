package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/library-ledger/pkg/bootstrap"
	"github.com/chris/library-ledger/pkg/config"
	"github.com/chris/library-ledger/pkg/restock"
)

var reconciler *restock.Reconciler

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Scheduler != config.SchedulerSQS {
		log.Fatal("the reconciliation lambda requires SCHEDULER=sqs")
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
	reconciler = restock.NewReconciler(services.Store, sched, cfg.ReconcileGrace)
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) error {
	log.Println("Starting reconciliation of stuck restocks...")

	enqueued, err := reconciler.Sweep(ctx)
	if err != nil {
		log.Printf("ERROR: reconciliation finished with failures after re-enqueuing %d restocks: %v", enqueued, err)
		return err
	}

	log.Printf("Reconciliation finished, %d restocks re-enqueued.", enqueued)
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
