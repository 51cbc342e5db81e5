package websockets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GatewayAPI defines the subset of the API Gateway management client used by the publisher.
type GatewayAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// GatewayPublisher posts messages to every connection registered in the store
// through the API Gateway management API.
type GatewayPublisher struct {
	store  ConnectionStore
	client GatewayAPI
}

// NewGatewayClient creates a management API client for a websocket API endpoint.
func NewGatewayClient(cfg aws.Config, apiEndpoint string) *apigatewaymanagementapi.Client {
	return apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(apiEndpoint)
	})
}

// NoOpPublisher is used when no dashboard endpoint is configured.
type NoOpPublisher struct{}

// Publish does nothing.
func (p *NoOpPublisher) Publish(ctx context.Context, message Message) error {
	return nil
}

// NewGatewayPublisher creates a new GatewayPublisher.
func NewGatewayPublisher(store ConnectionStore, client GatewayAPI) *GatewayPublisher {
	return &GatewayPublisher{store: store, client: client}
}

// Publish posts message to every registered dashboard. Dashboards that are gone are
// unregistered; other failed posts are returned joined once every dashboard was tried.
func (p *GatewayPublisher) Publish(ctx context.Context, message Message) error {
	connectionIDs, err := p.store.GetAllConnections(ctx)
	if err != nil {
		return fmt.Errorf("failed to get all connections: %w", err)
	}
	if len(connectionIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", message.Type, err)
	}

	var errs []error
	for _, connectionID := range connectionIDs {
		if err := p.post(ctx, connectionID, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *GatewayPublisher) post(ctx context.Context, connectionID string, payload []byte) error {
	_, err := p.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	var gone *apigwtypes.GoneException
	switch {
	case err == nil:
		return nil
	case errors.As(err, &gone):
		slog.InfoContext(ctx, "dashboard connection gone, unregistering", "connectionId", connectionID)
		if err := p.store.RemoveConnection(ctx, connectionID); err != nil {
			slog.ErrorContext(ctx, "failed to unregister gone connection", "connectionId", connectionID, "error", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to post to connection %s: %w", connectionID, err)
	}
}
