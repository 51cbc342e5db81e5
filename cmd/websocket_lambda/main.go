package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/library-ledger/pkg/bootstrap"
	"github.com/chris/library-ledger/pkg/config"
	"github.com/chris/library-ledger/pkg/handlers/websockets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	services, err := bootstrap.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	if services.Connections == nil {
		log.Fatal("DYNAMODB_CONNECTIONS_TABLE_NAME must be set with the dynamodb backend")
	}

	lambda.Start(websockets.NewHandler(services.Connections).HandleRoute)
}
