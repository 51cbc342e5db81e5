package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/library-ledger/pkg/bootstrap"
	"github.com/chris/library-ledger/pkg/config"
	"github.com/chris/library-ledger/pkg/reminders"
)

var service *reminders.Service

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	services, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	sender, err := services.Sender(ctx, nil)
	if err != nil {
		log.Fatalf("failed to create notification sender: %v", err)
	}
	service = reminders.NewService(services.Store, sender, cfg.BorrowPeriod)
}

// HandleRequest is triggered by a daily EventBridge Schedule.
func HandleRequest(ctx context.Context) error {
	sent, err := service.SendReturnReminders(ctx)
	if err != nil {
		log.Printf("ERROR: %d reminders sent, some failed: %v", sent, err)
		return err
	}
	log.Printf("%d return reminders sent.", sent)
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
